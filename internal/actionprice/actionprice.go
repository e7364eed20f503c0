// Package actionprice implements the Action Price recognizer from spec.md
// §4.5: a separate pipeline from the strategy set (S2), operating only on
// fully closed 15m candles, that looks for an initiator bar whose body
// crosses EMA200 confirmed by a same-side closing bar, scores the setup
// across eleven additive components, and emits a STANDARD/SCALP/SKIP
// signal with its own 3-tier exit schedule. There is no teacher analogue
// for this exact pattern (spec.md §4.5's [EXPANSION] note: "a new
// recognizer, not present in the teacher"); its scoring-table shape is
// grounded on the teacher's Scorecard
// (_examples/nofendian17-stockbit-haka-haki/app/scorecard.go), which also
// assembles a final decision from a fixed list of named, additive
// components. Final pricing (entry/sl/tp1/tp2) is computed with
// github.com/shopspring/decimal rather than float64 so tier boundaries
// never drift from rounding error across the repeated 30/40/30 split.
package actionprice

import (
	"github.com/shopspring/decimal"

	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/storedata"
)

// Config mirrors the action_price.* configuration surface of spec.md §6.
type Config struct {
	MaxSLPercent   float64 // default 15.0
	MinTotalScore  float64 // default 6.0
	ScalpThreshold float64 // mode band floor between SCALP and SKIP
	TP2ScalpRR     float64 // default 1.5
	TP2StandardRR  float64 // default 2.0
	TP1Fraction    float64 // default 0.30
	TP2Fraction    float64 // default 0.40
	RunnerFraction float64 // default 0.30
	TrailATRMult   float64 // default 1.2
}

// Components is the eleven additive scoring terms from spec.md §4.5.
type Components struct {
	C1InitiatorSize      float64
	C2EMA200Proximity    float64
	C3PullbackDepth      float64
	C4EMA200Slope        float64
	C5FanCompactness     float64
	C6RetestTag          float64
	C7BreakAndBaseTag    float64
	C8RejectionWick      float64
	C9VolumeConfirmation float64
	C10LipuchkaPenalty   float64
	C11Overextension     float64
}

func (c Components) Total() float64 {
	return c.C1InitiatorSize + c.C2EMA200Proximity + c.C3PullbackDepth + c.C4EMA200Slope +
		c.C5FanCompactness + c.C6RetestTag + c.C7BreakAndBaseTag + c.C8RejectionWick +
		c.C9VolumeConfirmation + c.C10LipuchkaPenalty + c.C11Overextension
}

// Recognizer scans a closed 15m series for the initiator/confirmation
// EMA200-cross pattern.
type Recognizer struct {
	cfg Config
}

func New(cfg Config) *Recognizer { return &Recognizer{cfg: cfg} }

const (
	lipuchkaLookback    = 40
	overextensionATRMul = 4.0
	volumeLookback      = 20
)

// Recognize inspects the tail of a closed 15m candle series for an
// initiator bar crossing EMA200, confirmed by the following bar closing on
// the same side, and returns the resulting signal or nil if no pattern, no
// score threshold, or the SL cap rejects it.
func (r *Recognizer) Recognize(candles []*storedata.Candle, bundle *indicator.Bundle, ema200Series []float64) (*storedata.ActionPriceSignal, error) {
	n := len(candles)
	if n < lipuchkaLookback+2 || len(ema200Series) < n {
		return nil, nil
	}

	initiator := candles[n-2]
	confirm := candles[n-1]
	ema200 := ema200Series[n-1]
	ema200AtInitiator := ema200Series[n-2]

	crossedUp := initiator.Open < ema200AtInitiator && initiator.Close > ema200AtInitiator
	crossedDown := initiator.Open > ema200AtInitiator && initiator.Close < ema200AtInitiator
	if !crossedUp && !crossedDown {
		return nil, nil
	}

	var direction storedata.Direction
	if crossedUp && confirm.Close > ema200 {
		direction = storedata.DirectionLong
	} else if crossedDown && confirm.Close < ema200 {
		direction = storedata.DirectionShort
	} else {
		return nil, nil
	}

	comps := r.score(candles, bundle, ema200Series, direction)
	total := comps.Total()
	if total < r.cfg.MinTotalScore {
		return nil, nil
	}

	mode := storedata.ModeSkip
	switch {
	case total >= r.cfg.MinTotalScore+2:
		mode = storedata.ModeStandard
	case total >= r.cfg.ScalpThreshold:
		mode = storedata.ModeScalp
	}
	if mode == storedata.ModeSkip {
		return nil, nil
	}

	entry, sl, tp1, tp2, ok := r.pricing(initiator, confirm, bundle, direction, mode)
	if !ok {
		return nil, nil
	}

	return &storedata.ActionPriceSignal{
		Symbol:             candles[0].Symbol,
		Direction:          direction,
		Mode:               mode,
		Entry:              entry,
		SL:                 sl,
		TP1:                tp1,
		TP2:                tp2,
		Status:             storedata.StatusPending,
		CreatedAt:          confirm.CloseTime,
		TotalScore:         total,
		C1InitiatorSize:      comps.C1InitiatorSize,
		C2EMA200Proximity:    comps.C2EMA200Proximity,
		C3PullbackDepth:      comps.C3PullbackDepth,
		C4EMA200Slope:        comps.C4EMA200Slope,
		C5FanCompactness:     comps.C5FanCompactness,
		C6RetestTag:          comps.C6RetestTag,
		C7BreakAndBaseTag:    comps.C7BreakAndBaseTag,
		C8RejectionWick:      comps.C8RejectionWick,
		C9VolumeConfirmation: comps.C9VolumeConfirmation,
		C10LipuchkaPenalty:   comps.C10LipuchkaPenalty,
		C11Overextension:     comps.C11Overextension,
		InitiatorTimestamp: initiator.OpenTime,
		ConfirmOpen:        confirm.Open,
		ConfirmHigh:        confirm.High,
		ConfirmLow:         confirm.Low,
		ConfirmClose:       confirm.Close,
		EMA200AtEntry:      ema200,
		ATRAtEntry:         bundle.ATR,
	}, nil
}

func (r *Recognizer) score(candles []*storedata.Candle, bundle *indicator.Bundle, ema200Series []float64, direction storedata.Direction) Components {
	n := len(candles)
	initiator := candles[n-2]
	ema200 := ema200Series[n-1]
	atr := bundle.ATR
	if atr <= 0 {
		atr = 1
	}

	body := initiator.Close - initiator.Open
	if body < 0 {
		body = -body
	}
	c1 := clamp(body/atr, 0, 2)

	distance := (initiator.Close - ema200) / ema200
	if distance < 0 {
		distance = -distance
	}
	c2 := clamp(2-distance*200, 0, 2)

	c3 := 0.0
	ema13 := bundle.EMA20 // 13-period EMA not separately modeled; EMA20 approximates the inner band edge
	lowBand, highBand := ema200, ema13
	if lowBand > highBand {
		lowBand, highBand = highBand, lowBand
	}
	if initiator.Close >= lowBand && initiator.Close <= highBand {
		c3 = 1.0
	}

	c4 := clamp(bundle.EMA200Slope*500, -1, 1)

	fanSpread := absF(bundle.EMA20-bundle.EMA50) + absF(bundle.EMA50-bundle.EMA200)
	c5 := clamp(1-fanSpread/(atr*5), 0, 1)

	c6 := retestTag(candles, ema200Series, direction)
	c7 := breakAndBaseTag(candles, direction)
	c8 := rejectionWick(initiator, direction)

	volWindow := tailVolume(candles, volumeLookback)
	breakoutVol := initiator.Volume
	c9 := 0.0
	switch {
	case breakoutVol >= volWindow*1.5:
		c9 = 2
	case breakoutVol >= volWindow*1.1:
		c9 = 1
	case breakoutVol < volWindow*0.7:
		c9 = -1
	}

	touches := priorEMA200Touches(candles, ema200Series, lipuchkaLookback)
	c10 := 0.0
	if touches >= 3 {
		c10 = -2
	}

	overext := distance * initiator.Close / atr
	c11 := 0.0
	if overext > overextensionATRMul {
		c11 = -2
	}

	return Components{
		C1InitiatorSize: c1, C2EMA200Proximity: c2, C3PullbackDepth: c3, C4EMA200Slope: c4,
		C5FanCompactness: c5, C6RetestTag: c6, C7BreakAndBaseTag: c7, C8RejectionWick: c8,
		C9VolumeConfirmation: c9, C10LipuchkaPenalty: c10, C11Overextension: c11,
	}
}

func retestTag(candles []*storedata.Candle, ema200Series []float64, direction storedata.Direction) float64 {
	n := len(candles)
	if n < 5 {
		return 0
	}
	prior := candles[n-3]
	ema := ema200Series[n-3]
	if direction == storedata.DirectionLong && prior.Low <= ema*1.002 && prior.Close > ema {
		return 1
	}
	if direction == storedata.DirectionShort && prior.High >= ema*0.998 && prior.Close < ema {
		return 1
	}
	return 0
}

func breakAndBaseTag(candles []*storedata.Candle, direction storedata.Direction) float64 {
	n := len(candles)
	if n < 4 {
		return 0
	}
	base := candles[n-4 : n-1]
	rang := base[0].High - base[0].Low
	for _, c := range base[1:] {
		if c.High-c.Low > rang {
			rang = c.High - c.Low
		}
	}
	avg := (base[0].High - base[0].Low)
	if rang <= avg*1.5 {
		return 0.5
	}
	return 0
}

func rejectionWick(c *storedata.Candle, direction storedata.Direction) float64 {
	body := absF(c.Close - c.Open)
	if body == 0 {
		return 0
	}
	if direction == storedata.DirectionLong {
		lowerWick := minF(c.Open, c.Close) - c.Low
		if lowerWick > body {
			return 1
		}
		return 0
	}
	upperWick := c.High - maxF(c.Open, c.Close)
	if upperWick > body {
		return 1
	}
	return 0
}

func tailVolume(candles []*storedata.Candle, n int) float64 {
	if len(candles) < n+1 {
		n = len(candles) - 1
	}
	window := candles[len(candles)-n-1 : len(candles)-1]
	sum := 0.0
	for _, c := range window {
		sum += c.Volume
	}
	if len(window) == 0 {
		return 0
	}
	return sum / float64(len(window))
}

func priorEMA200Touches(candles []*storedata.Candle, ema200Series []float64, lookback int) int {
	n := len(candles)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	touches := 0
	for i := start; i < n-2; i++ {
		ema := ema200Series[i]
		c := candles[i]
		if c.Low <= ema && c.High >= ema {
			touches++
		}
	}
	return touches
}

// pricing computes entry/sl/tp1/tp2 using decimal arithmetic so the
// multi-tier exit schedule never accumulates float rounding drift.
func (r *Recognizer) pricing(initiator, confirm *storedata.Candle, bundle *indicator.Bundle, direction storedata.Direction, mode storedata.ActionPriceMode) (entry, sl, tp1 float64, tp2 float64, ok bool) {
	entryD := decimal.NewFromFloat(confirm.Close)
	atrBuffer := decimal.NewFromFloat(bundle.ATR).Mul(decimal.NewFromFloat(0.25))

	var slD decimal.Decimal
	if direction == storedata.DirectionLong {
		slD = decimal.NewFromFloat(initiator.Low).Sub(atrBuffer)
	} else {
		slD = decimal.NewFromFloat(initiator.High).Add(atrBuffer)
	}

	var riskD decimal.Decimal
	if direction == storedata.DirectionLong {
		riskD = entryD.Sub(slD)
	} else {
		riskD = slD.Sub(entryD)
	}
	if riskD.Sign() <= 0 {
		return 0, 0, 0, 0, false
	}

	maxSL := entryD.Mul(decimal.NewFromFloat(r.cfg.MaxSLPercent / 100))
	if riskD.GreaterThan(maxSL) {
		return 0, 0, 0, 0, false
	}

	rr := r.cfg.TP2StandardRR
	if mode == storedata.ModeScalp {
		rr = r.cfg.TP2ScalpRR
	}
	tp2Mult := decimal.NewFromFloat(rr)

	var tp1D, tp2D decimal.Decimal
	if direction == storedata.DirectionLong {
		tp1D = entryD.Add(riskD)
		tp2D = entryD.Add(riskD.Mul(tp2Mult))
	} else {
		tp1D = entryD.Sub(riskD)
		tp2D = entryD.Sub(riskD.Mul(tp2Mult))
	}

	entryF, _ := entryD.Float64()
	slF, _ := slD.Float64()
	tp1F, _ := tp1D.Float64()
	tp2F, _ := tp2D.Float64()
	return entryF, slF, tp1F, tp2F, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
