// Package regime implements S1: classifies the prevailing market regime
// from the 1h indicator bundle into {TREND, SQUEEZE, RANGE, CHOP,
// UNDECIDED} with a directional bias. Structurally this generalizes
// _examples/nofendian17-stockbit-haka-haki/app/regime_detector.go's
// RegimeDetector (a ticker-driven loop over active symbols, each classified
// from SMA/EMA/stddev into one of four buckets); the classification itself
// is replaced with spec.md §4.4's five-way, explicitly prioritized
// tie-break chain and ADX/Bollinger/Keltner inputs the teacher never used.
package regime

import (
	"context"
	"log"
	"time"

	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/storedata"
)

// Tag is one of the five regime classifications.
type Tag string

const (
	Trend     Tag = "TREND"
	Squeeze   Tag = "SQUEEZE"
	Range     Tag = "RANGE"
	Chop      Tag = "CHOP"
	Undecided Tag = "UNDECIDED"
)

// Bias is the directional lean accompanying a Tag.
type Bias string

const (
	Bullish Bias = "bullish"
	Bearish Bias = "bearish"
	Neutral Bias = "neutral"
)

// Classification is the regime detector's output for one symbol/cycle.
type Classification struct {
	Symbol     string
	Tag        Tag
	Bias       Bias
	Confidence float64
}

const (
	adxTrendThreshold       = 25.0
	ema200SlopeThreshold    = 0.001 // 0.1%
	bbWidthSqueezePercentile = 20.0  // lower 20th percentile
	rangeSlopeThreshold     = 0.0003
)

// Classify applies the prioritized tie-break chain from spec.md §4.4 to a
// 1h indicator bundle.
func Classify(symbol string, b *indicator.Bundle) Classification {
	bias := biasFromSlope(b.EMA200Slope)

	switch {
	case b.ADX >= adxTrendThreshold && abs(b.EMA200Slope) >= ema200SlopeThreshold:
		return Classification{Symbol: symbol, Tag: Trend, Bias: bias, Confidence: confidenceFromSlope(b.EMA200Slope)}
	case b.BBWidthPercentile <= bbWidthSqueezePercentile && keltnerContains(b):
		return Classification{Symbol: symbol, Tag: Squeeze, Bias: Neutral, Confidence: 0.6}
	case abs(b.EMA200Slope) < rangeSlopeThreshold:
		return Classification{Symbol: symbol, Tag: Range, Bias: Neutral, Confidence: 0.5}
	case b.ADX < adxTrendThreshold:
		return Classification{Symbol: symbol, Tag: Chop, Bias: Neutral, Confidence: 0.4}
	default:
		return Classification{Symbol: symbol, Tag: Undecided, Bias: Neutral, Confidence: 0.3}
	}
}

// keltnerContains reports whether price action is currently contained
// within the Keltner channel — a squeeze precondition alongside a narrow
// Bollinger width.
func keltnerContains(b *indicator.Bundle) bool {
	return b.BollingerUpper <= b.KeltnerUpper && b.BollingerLower >= b.KeltnerLower
}

func biasFromSlope(slope float64) Bias {
	switch {
	case slope > ema200SlopeThreshold:
		return Bullish
	case slope < -ema200SlopeThreshold:
		return Bearish
	default:
		return Neutral
	}
}

func confidenceFromSlope(slope float64) float64 {
	c := 0.6 + abs(slope)*100
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Detector runs the classification on a ticker, persisting nothing itself —
// callers (the main loop) read Classify results directly per cycle; Detector
// exists for the standalone-refresh mode the teacher's RegimeDetector.Start
// offers (useful for the `refresh` CLI subcommand and for symbols not in the
// active evaluation set this cycle).
type Detector struct {
	candles *storedata.CandleRepository
	cache   *indicator.Cache
	engine  indicator.Engine
	done    chan struct{}
}

// NewDetector wires a Detector from a candle repository and the indicator
// cache; classification reads its bundles through the cache. The engine
// argument is stored on the Detector but not used by classification.
func NewDetector(candles *storedata.CandleRepository, cache *indicator.Cache, engine indicator.Engine) *Detector {
	return &Detector{candles: candles, cache: cache, engine: engine, done: make(chan struct{})}
}

// Start runs classification on a 15-minute ticker for the given symbols,
// mirroring the teacher's RegimeDetector.Start cadence.
func (d *Detector) Start(ctx context.Context, symbols []string) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	d.runOnce(ctx, symbols)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-ticker.C:
			d.runOnce(ctx, symbols)
		}
	}
}

func (d *Detector) Stop() { close(d.done) }

// RunOnce classifies every symbol a single time and returns the results —
// the one-shot entry point the `refresh` CLI subcommand uses to report
// each symbol's regime right after its candles are refreshed.
func (d *Detector) RunOnce(ctx context.Context, symbols []string) []Classification {
	return d.runOnce(ctx, symbols)
}

func (d *Detector) runOnce(ctx context.Context, symbols []string) []Classification {
	results := make([]Classification, 0, len(symbols))
	for _, symbol := range symbols {
		c, err := d.classifyOne(ctx, symbol)
		if err != nil {
			log.Printf("⚠️  regime classification failed for %s: %v", symbol, err)
			continue
		}
		results = append(results, c)
	}
	log.Printf("✅ regime detector classified %d/%d symbols", len(results), len(symbols))
	return results
}

func (d *Detector) classifyOne(ctx context.Context, symbol string) (Classification, error) {
	candles, err := d.candles.Recent(ctx, symbol, "1h", 300)
	if err != nil {
		return Classification{}, err
	}
	if len(candles) < 210 {
		return Classification{Symbol: symbol, Tag: Undecided, Bias: Neutral}, nil
	}
	bundle, err := d.cache.GetOrCompute(candles)
	if err != nil {
		return Classification{}, err
	}
	return Classify(symbol, bundle), nil
}
