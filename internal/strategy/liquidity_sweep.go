package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

const (
	sweepLookback       = 20
	sweepReclaimBars    = 2
	sweepATRBufferMult  = 0.25
)

// liquiditySweep detects a wick beyond the recent extreme followed by a
// rapid reclaim — the "stop hunt" pattern. Any regime, 15m.
type liquiditySweep struct{}

func NewLiquiditySweep() Strategy { return &liquiditySweep{} }

func (s *liquiditySweep) Name() string      { return "LIQUIDITY_SWEEP" }
func (s *liquiditySweep) Timeframe() string { return "15m" }

func (s *liquiditySweep) Evaluate(in Input) (*Proposal, error) {
	if len(in.Candles) < sweepLookback+sweepReclaimBars {
		return nil, nil
	}
	// The last sweepReclaimBars bars are the sweep bar and its confirmation;
	// the sweepLookback bars before them set the recent extremes.
	window := in.Candles[len(in.Candles)-sweepLookback-sweepReclaimBars : len(in.Candles)-sweepReclaimBars]
	recentHigh, recentLow := window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > recentHigh {
			recentHigh = c.High
		}
		if c.Low < recentLow {
			recentLow = c.Low
		}
	}

	sweepBar := in.Candles[len(in.Candles)-sweepReclaimBars]
	confirm := last(in.Candles)
	atr := in.Bundle.ATR

	// Bullish sweep: wick below recentLow, body reclaims above it.
	if sweepBar.Low < recentLow && sweepBar.Close > recentLow && confirm.Close > sweepBar.Close {
		entry := confirm.Close
		sl := sweepBar.Low - atr*sweepATRBufferMult
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
				VolumeConfirmed: confirm.Volume > in.Bundle.VolumeMean,
				HTFAlignment:    in.Bias == regime.Bullish,
			},
		}, nil
	}

	// Bearish sweep: wick above recentHigh, body reclaims below it.
	if sweepBar.High > recentHigh && sweepBar.Close < recentHigh && confirm.Close < sweepBar.Close {
		entry := confirm.Close
		sl := sweepBar.High + atr*sweepATRBufferMult
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
				VolumeConfirmed: confirm.Volume > in.Bundle.VolumeMean,
				HTFAlignment:    in.Bias == regime.Bearish,
			},
		}, nil
	}

	return nil, nil
}
