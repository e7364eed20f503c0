package indicator

import (
	"fmt"
	"math"
	"sort"

	"futuressignalengine/internal/storedata"
)

// Engine computes a Bundle from a closed-candle series. Strategies and the
// regime detector depend on this interface, not on any specific math
// library, per spec.md §1's "concrete indicator math is out of scope".
type Engine interface {
	ComputeBundle(candles []*storedata.Candle) (*Bundle, error)
}

const (
	atrPeriod    = 14
	emaFastPeriod  = 20
	emaMidPeriod   = 50
	emaSlowPeriod  = 200
	bbPeriod     = 20
	bbLookback   = 100
	donchianPeriod = 20
	volStatsPeriod = 20
	slopeLookbackBars = 10
)

type defaultEngine struct{}

// NewDefaultEngine returns the built-in Engine implementation.
func NewDefaultEngine() Engine { return &defaultEngine{} }

func (defaultEngine) ComputeBundle(candles []*storedata.Candle) (*Bundle, error) {
	if len(candles) < emaSlowPeriod+slopeLookbackBars {
		return nil, fmt.Errorf("indicator: need at least %d candles, got %d", emaSlowPeriod+slopeLookbackBars, len(candles))
	}

	closes := closesOf(candles)

	ema20 := calculateEMA(closes, emaFastPeriod)
	ema50 := calculateEMA(closes, emaMidPeriod)
	ema200Series := calculateEMASeries(closes, emaSlowPeriod)
	ema200 := ema200Series[len(ema200Series)-1]
	ema200Prev := ema200Series[len(ema200Series)-1-slopeLookbackBars]
	slope := (ema200 - ema200Prev) / ema200Prev

	atr := calculateATR(candles, atrPeriod)
	atrSeries := calculateATRSeries(candles, atrPeriod)
	atrPercentile := percentileRank(atrSeries, atr)

	sma20 := calculateSMA(closes, bbPeriod)
	stddev20 := calculateStdDev(closes, bbPeriod, sma20)
	upper := sma20 + 2*stddev20
	lower := sma20 - 2*stddev20
	width := (upper - lower) / sma20

	widthSeries := bollingerWidthSeries(closes, bbPeriod, bbLookback)
	bbWidthPercentile := percentileRank(widthSeries, width)

	donHigh, donLow := donchian(candles, donchianPeriod)

	keltnerUpper := ema20 + 2*atr
	keltnerLower := ema20 - 2*atr

	volumes := volumesOf(candles)
	volMean := calculateSMA(volumes, volStatsPeriod)
	volStdDev := calculateStdDev(volumes, volStatsPeriod, volMean)

	adx := calculateADX(candles, atrPeriod)

	last := candles[len(candles)-1]
	return &Bundle{
		Symbol:            last.Symbol,
		Timeframe:         last.Timeframe,
		NewestCloseTime:   last.CloseTime.Unix(),
		ATR:               atr,
		ADX:               adx,
		EMA20:             ema20,
		EMA50:             ema50,
		EMA200:            ema200,
		EMA200Slope:       slope,
		BollingerUpper:    upper,
		BollingerMid:      sma20,
		BollingerLower:    lower,
		BBWidthPercentile: bbWidthPercentile,
		DonchianHigh:      donHigh,
		DonchianLow:       donLow,
		KeltnerUpper:      keltnerUpper,
		KeltnerLower:      keltnerLower,
		ATRPercentile:     atrPercentile,
		VolumeMean:        volMean,
		VolumeStdDev:      volStdDev,
	}, nil
}

// EMASeries exposes the EMA200 series (not just its latest value) for
// callers that need per-bar history — the Action Price recognizer scans it
// for prior touches (spec.md §4.5's C10 component) rather than a single
// snapshot value.
func EMASeries(candles []*storedata.Candle, period int) []float64 {
	return calculateEMASeries(closesOf(candles), period)
}

func closesOf(candles []*storedata.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func volumesOf(candles []*storedata.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// calculateSMA adapts
// _examples/nofendian17-stockbit-haka-haki/app/regime_detector.go's
// calculateSMA, generalized to any tail window of a float series.
func calculateSMA(series []float64, period int) float64 {
	if len(series) < period {
		period = len(series)
	}
	tail := series[len(series)-period:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}

// calculateStdDev adapts the teacher's calculateStdDev, taking an
// already-computed mean so callers that need both don't compute it twice.
func calculateStdDev(series []float64, period int, mean float64) float64 {
	if len(series) < period {
		period = len(series)
	}
	tail := series[len(series)-period:]
	var sumSq float64
	for _, v := range tail {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(tail)))
}

// calculateEMA adapts the teacher's calculateEMA: seed with an SMA of the
// first `period` values, then apply the standard smoothing factor over the
// rest of the series, returning only the final value.
func calculateEMA(series []float64, period int) float64 {
	full := calculateEMASeries(series, period)
	return full[len(full)-1]
}

// calculateEMASeries returns the EMA value aligned to every input bar (the
// first period-1 entries repeat the seed), so callers can read a slope over
// a lookback without recomputing the whole series.
func calculateEMASeries(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) < period {
		period = len(series)
	}
	seed := calculateSMA(series[:period], period)
	k := 2.0 / float64(period+1)

	ema := seed
	for i := 0; i < period; i++ {
		out[i] = seed
	}
	for i := period; i < len(series); i++ {
		ema = series[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// calculateATR adapts the Wilder's-smoothing true-range calculation from
// _examples/nofendian17-stockbit-haka-haki/app/exit_strategy.go
// (CalculateATR), returning only the latest value.
func calculateATR(candles []*storedata.Candle, period int) float64 {
	series := calculateATRSeries(candles, period)
	return series[len(series)-1]
}

func calculateATRSeries(candles []*storedata.Candle, period int) []float64 {
	trueRanges := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			trueRanges[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		trueRanges[i] = tr
	}

	out := make([]float64, len(candles))
	seed := calculateSMA(trueRanges[:period], period)
	atr := seed
	for i := 0; i < period; i++ {
		out[i] = seed
	}
	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// calculateADX returns a single directional-movement index (DX) computed from
// simple averages of the last `period` true ranges and +DM/-DM values. It
// applies no Wilder smoothing and does not average DX over time.
func calculateADX(candles []*storedata.Candle, period int) float64 {
	if len(candles) < period*2 {
		return 0
	}
	var plusDM, minusDM, tr []float64
	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		pd, md := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			pd = upMove
		}
		if downMove > upMove && downMove > 0 {
			md = downMove
		}
		plusDM = append(plusDM, pd)
		minusDM = append(minusDM, md)

		prevClose := candles[i-1].Close
		tr = append(tr, math.Max(candles[i].High-candles[i].Low,
			math.Max(math.Abs(candles[i].High-prevClose), math.Abs(candles[i].Low-prevClose))))
	}

	smoothedTR := calculateSMA(tr, period)
	smoothedPlusDM := calculateSMA(plusDM, period)
	smoothedMinusDM := calculateSMA(minusDM, period)
	if smoothedTR == 0 {
		return 0
	}

	plusDI := 100 * smoothedPlusDM / smoothedTR
	minusDI := 100 * smoothedMinusDM / smoothedTR
	sumDI := plusDI + minusDI
	if sumDI == 0 {
		return 0
	}
	dx := 100 * math.Abs(plusDI-minusDI) / sumDI
	return dx
}

func donchian(candles []*storedata.Candle, period int) (high, low float64) {
	if len(candles) < period {
		period = len(candles)
	}
	tail := candles[len(candles)-period:]
	high, low = tail[0].High, tail[0].Low
	for _, c := range tail[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// bollingerWidthSeries returns BB width for every bar position over the
// lookback, used to rank the current width as a percentile.
func bollingerWidthSeries(closes []float64, period, lookback int) []float64 {
	start := len(closes) - lookback
	if start < period {
		start = period
	}
	out := make([]float64, 0, len(closes)-start)
	for i := start; i <= len(closes); i++ {
		window := closes[:i]
		sma := calculateSMA(window, period)
		sd := calculateStdDev(window, period, sma)
		if sma == 0 {
			continue
		}
		out = append(out, (4*sd)/sma)
	}
	return out
}

// percentileRank returns what percentile (0..100) value occupies within
// series.
func percentileRank(series []float64, value float64) float64 {
	if len(series) == 0 {
		return 50
	}
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	idx := sort.SearchFloat64s(sorted, value)
	return 100 * float64(idx) / float64(len(sorted))
}
