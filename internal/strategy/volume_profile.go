package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

const (
	volumeProfileLookback = 48
	volumeProfileBins     = 24
	volumeProfileATRBufferMult = 0.3
)

// volumeProfile builds a simple price-binned volume histogram over the
// lookback, derives POC/VAH/VAL (the 70% value area around the POC bin),
// and trades either a rejection (fade) at VAH/VAL or an acceptance
// (breakout) through them. Any regime, 15m.
type volumeProfile struct{}

func NewVolumeProfile() Strategy { return &volumeProfile{} }

func (s *volumeProfile) Name() string      { return "VOLUME_PROFILE" }
func (s *volumeProfile) Timeframe() string { return "15m" }

func (s *volumeProfile) Evaluate(in Input) (*Proposal, error) {
	if len(in.Candles) < volumeProfileLookback+1 {
		return nil, nil
	}
	window := in.Candles[len(in.Candles)-volumeProfileLookback-1 : len(in.Candles)-1]
	vah, val, poc := valueArea(window)
	confirm := last(in.Candles)
	atr := in.Bundle.ATR

	// Fade at VAH: wick above, close back inside.
	if confirm.High > vah && confirm.Close < vah {
		entry := confirm.Close
		sl := confirm.High + atr*volumeProfileATRBufferMult
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
			TP2:       floatPtr(poc),
			BaseScore: 2.0,
			FactorFlags: FactorFlags{
				PriceAction:  true,
				HTFAlignment: in.Bias == regime.Bearish,
			},
		}, nil
	}

	// Fade at VAL: wick below, close back inside.
	if confirm.Low < val && confirm.Close > val {
		entry := confirm.Close
		sl := confirm.Low - atr*volumeProfileATRBufferMult
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
			TP2:       floatPtr(poc),
			BaseScore: 2.0,
			FactorFlags: FactorFlags{
				PriceAction:  true,
				HTFAlignment: in.Bias == regime.Bullish,
			},
		}, nil
	}

	// Acceptance breakout above VAH.
	if confirm.Close > vah && confirm.Volume > in.Bundle.VolumeMean {
		entry := confirm.Close
		sl := vah - atr*volumeProfileATRBufferMult
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
			BaseScore: 2.0,
			FactorFlags: FactorFlags{
				VolumeConfirmed: true,
				HTFAlignment:    in.Bias == regime.Bullish,
			},
		}, nil
	}

	// Acceptance breakdown below VAL.
	if confirm.Close < val && confirm.Volume > in.Bundle.VolumeMean {
		entry := confirm.Close
		sl := val + atr*volumeProfileATRBufferMult
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
			BaseScore: 2.0,
			FactorFlags: FactorFlags{
				VolumeConfirmed: true,
				HTFAlignment:    in.Bias == regime.Bearish,
			},
		}, nil
	}

	return nil, nil
}

// valueArea bins close prices weighted by volume into volumeProfileBins
// buckets across the window's range, finds the point-of-control bin, then
// grows outward from it until 70% of total volume is captured.
func valueArea(candles []*storedata.Candle) (vah, val, poc float64) {
	lo, hi := candles[0].Low, candles[0].High
	totalVolume := 0.0
	for _, c := range candles {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
		totalVolume += c.Volume
	}
	span := hi - lo
	if span <= 0 {
		return hi, lo, (hi + lo) / 2
	}
	binWidth := span / volumeProfileBins

	bins := make([]float64, volumeProfileBins)
	for _, c := range candles {
		idx := int((c.Close - lo) / binWidth)
		if idx < 0 {
			idx = 0
		}
		if idx >= volumeProfileBins {
			idx = volumeProfileBins - 1
		}
		bins[idx] += c.Volume
	}

	pocIdx := 0
	for i, v := range bins {
		if v > bins[pocIdx] {
			pocIdx = i
		}
	}
	poc = lo + binWidth*(float64(pocIdx)+0.5)

	captured := bins[pocIdx]
	lowIdx, highIdx := pocIdx, pocIdx
	target := totalVolume * 0.70
	for captured < target && (lowIdx > 0 || highIdx < volumeProfileBins-1) {
		expandLow := lowIdx > 0
		expandHigh := highIdx < volumeProfileBins-1
		var lowVol, highVol float64
		if expandLow {
			lowVol = bins[lowIdx-1]
		}
		if expandHigh {
			highVol = bins[highIdx+1]
		}
		if expandHigh && (!expandLow || highVol >= lowVol) {
			highIdx++
			captured += highVol
		} else if expandLow {
			lowIdx--
			captured += lowVol
		} else {
			break
		}
	}

	val = lo + binWidth*float64(lowIdx)
	vah = lo + binWidth*(float64(highIdx)+1)
	return vah, val, poc
}
