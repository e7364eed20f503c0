package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

const (
	atrMomentumLookback     = 20
	atrMomentumImpulseMult  = 1.4
	atrMomentumBufferMult   = 0.3
)

// atrMomentum fires on an impulse bar whose range is at least 1.4x the
// median high-low range over the lookback, with a follow-through bar
// continuing the same direction. TREND only, 15m.
type atrMomentum struct{}

func NewATRMomentum() Strategy { return &atrMomentum{} }

func (s *atrMomentum) Name() string      { return "ATR_MOMENTUM" }
func (s *atrMomentum) Timeframe() string { return "15m" }

func (s *atrMomentum) Evaluate(in Input) (*Proposal, error) {
	if in.RegimeTag != regime.Trend {
		return nil, nil
	}
	if len(in.Candles) < atrMomentumLookback+2 {
		return nil, nil
	}

	window := in.Candles[len(in.Candles)-atrMomentumLookback-2 : len(in.Candles)-2]
	ranges := make([]float64, len(window))
	for i, c := range window {
		ranges[i] = c.High - c.Low
	}
	medianRange := median(ranges)
	if medianRange <= 0 {
		return nil, nil
	}

	impulse := in.Candles[len(in.Candles)-2]
	confirm := last(in.Candles)
	impulseRange := impulse.High - impulse.Low
	if impulseRange < medianRange*atrMomentumImpulseMult {
		return nil, nil
	}

	atr := in.Bundle.ATR
	bullishImpulse := impulse.Close > impulse.Open
	bearishImpulse := impulse.Close < impulse.Open

	if bullishImpulse && confirm.Close > impulse.Close {
		entry := confirm.Close
		sl := impulse.Low - atr*atrMomentumBufferMult
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
			TP2:       floatPtr(entry + risk*2),
			BaseScore: 2.5,
			FactorFlags: FactorFlags{
				PriceAction:     true,
				VolumeConfirmed: impulse.Volume > in.Bundle.VolumeMean,
				HTFAlignment:    in.Bias == regime.Bullish,
			},
		}, nil
	}

	if bearishImpulse && confirm.Close < impulse.Close {
		entry := confirm.Close
		sl := impulse.High + atr*atrMomentumBufferMult
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
			TP2:       floatPtr(entry - risk*2),
			BaseScore: 2.5,
			FactorFlags: FactorFlags{
				PriceAction:     true,
				VolumeConfirmed: impulse.Volume > in.Bundle.VolumeMean,
				HTFAlignment:    in.Bias == regime.Bearish,
			},
		}, nil
	}

	return nil, nil
}
