package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

const (
	pullbackFibLow  = 0.382
	pullbackFibHigh = 0.618
	pullbackATRBufferMult = 0.5
)

// maVWAPPullback trades a pullback into the EMA20 band within a Fibonacci
// retracement window of the most recent impulse leg. TREND only, 4h.
type maVWAPPullback struct{}

func NewMAVWAPPullback() Strategy { return &maVWAPPullback{} }

func (s *maVWAPPullback) Name() string      { return "MA_VWAP_PULLBACK" }
func (s *maVWAPPullback) Timeframe() string { return "4h" }

func (s *maVWAPPullback) Evaluate(in Input) (*Proposal, error) {
	if in.RegimeTag != regime.Trend {
		return nil, nil
	}
	if len(in.Candles) < 20 {
		return nil, nil
	}

	legHigh, legLow := swingExtremes(in.Candles[len(in.Candles)-20:])
	confirm := last(in.Candles)
	atr := in.Bundle.ATR
	ema20 := in.Bundle.EMA20

	legRange := legHigh - legLow
	if legRange <= 0 {
		return nil, nil
	}

	if in.Bias == regime.Bullish {
		retrace := (legHigh - confirm.Close) / legRange
		if retrace < pullbackFibLow || retrace > pullbackFibHigh {
			return nil, nil
		}
		if confirm.Low > ema20*1.01 || confirm.Low < ema20*0.97 {
			return nil, nil
		}
		entry := confirm.Close
		sl := confirm.Low - atr*pullbackATRBufferMult
		risk := entry - sl
		if risk <= 0 {
			return nil, nil
		}
		return &Proposal{
			Strategy:  s.Name(),
			Direction: storedata.DirectionLong,
			Entry:     entry,
			SL:        sl,
			TP1:       entry + risk,
			TP2:       floatPtr(legHigh),
			BaseScore: 2.5,
			FactorFlags: FactorFlags{
				HTFAlignment: true,
				PriceAction:  true,
			},
		}, nil
	}

	if in.Bias == regime.Bearish {
		retrace := (confirm.Close - legLow) / legRange
		if retrace < pullbackFibLow || retrace > pullbackFibHigh {
			return nil, nil
		}
		if confirm.High < ema20*0.99 || confirm.High > ema20*1.03 {
			return nil, nil
		}
		entry := confirm.Close
		sl := confirm.High + atr*pullbackATRBufferMult
		risk := sl - entry
		if risk <= 0 {
			return nil, nil
		}
		return &Proposal{
			Strategy:  s.Name(),
			Direction: storedata.DirectionShort,
			Entry:     entry,
			SL:        sl,
			TP1:       entry - risk,
			TP2:       floatPtr(legLow),
			BaseScore: 2.5,
			FactorFlags: FactorFlags{
				HTFAlignment: true,
				PriceAction:  true,
			},
		}, nil
	}

	return nil, nil
}

func swingExtremes(candles []*storedata.Candle) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}
