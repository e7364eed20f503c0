// Package indicator implements D2: a per-(symbol,timeframe,newest_close_time)
// cache of immutable indicator bundles, plus a default Engine that computes
// them. Concrete indicator math is out of spec scope (spec.md §1 treats it
// as "pure functions from a price series to named numeric outputs"); the
// default implementation here adapts the teacher's own indicator helpers —
// calculateSMA/calculateEMA/calculateStdDev from
// _examples/nofendian17-stockbit-haka-haki/app/regime_detector.go and the
// Wilder's-smoothing ATR from app/exit_strategy.go — so the engine has a
// real, working implementation rather than a stub.
package indicator

// Bundle is the immutable, memoized set of indicators D2 computes once per
// analysis cycle and every strategy/regime-detector call reuses.
type Bundle struct {
	Symbol         string
	Timeframe      string
	NewestCloseTime int64 // unix seconds of the newest closed candle's close_time

	ATR               float64
	ADX               float64
	EMA20             float64
	EMA50             float64
	EMA200            float64
	EMA200Slope       float64 // fractional slope over the lookback, e.g. 0.002 = 0.2%
	BollingerUpper    float64
	BollingerMid      float64
	BollingerLower    float64
	BBWidthPercentile float64 // 0..100, percentile of current BB width over the lookback
	DonchianHigh      float64
	DonchianLow       float64
	KeltnerUpper      float64
	KeltnerLower      float64
	ATRPercentile     float64
	VolumeMean        float64
	VolumeStdDev      float64
}
