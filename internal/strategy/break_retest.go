package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

var breakRetestRegimes = []regime.Tag{regime.Trend, regime.Squeeze}

const breakRetestATRBufferMult = 0.3

// breakAndRetest detects a body break of an S/R zone followed by a return
// to the zone with a rejection wick. TREND/SQUEEZE, 15m.
type breakAndRetest struct{}

func NewBreakAndRetest() Strategy { return &breakAndRetest{} }

func (s *breakAndRetest) Name() string      { return "BREAK_AND_RETEST" }
func (s *breakAndRetest) Timeframe() string { return "15m" }

func (s *breakAndRetest) Evaluate(in Input) (*Proposal, error) {
	if !regimeAllows(breakRetestRegimes, in.RegimeTag) {
		return nil, nil
	}
	if len(in.Candles) < 6 || len(in.Zones.Zones) == 0 {
		return nil, nil
	}

	confirm := last(in.Candles)
	atr := in.Bundle.ATR

	for _, z := range in.Zones.Zones {
		switch z.Kind {
		case storedata.ZoneResistance:
			// Break above resistance, then retest from above with rejection.
			if !brokeAbove(in.Candles, z.High) {
				continue
			}
			if confirm.Low > z.Low && confirm.Low < z.High && confirm.Close > z.High {
				entry := confirm.Close
				sl := z.Low - atr*breakRetestATRBufferMult
				risk := entry - sl
				if risk <= 0 {
					continue
				}
				return &Proposal{
					Strategy:  s.Name(),
					Direction: storedata.DirectionLong,
					Entry:     entry,
					SL:        sl,
					TP1:       entry + risk,
					TP2:       floatPtr(entry + risk*2),
					BaseScore: 3.0,
					FactorFlags: FactorFlags{
						ZoneConfluence: true,
						PriceAction:    true,
						HTFAlignment:   in.Bias == regime.Bullish,
					},
				}, nil
			}
		case storedata.ZoneSupport:
			if !brokeBelow(in.Candles, z.Low) {
				continue
			}
			if confirm.High < z.High && confirm.High > z.Low && confirm.Close < z.Low {
				entry := confirm.Close
				sl := z.High + atr*breakRetestATRBufferMult
				risk := sl - entry
				if risk <= 0 {
					continue
				}
				return &Proposal{
					Strategy:  s.Name(),
					Direction: storedata.DirectionShort,
					Entry:     entry,
					SL:        sl,
					TP1:       entry - risk,
					TP2:       floatPtr(entry - risk*2),
					BaseScore: 3.0,
					FactorFlags: FactorFlags{
						ZoneConfluence: true,
						PriceAction:    true,
						HTFAlignment:   in.Bias == regime.Bearish,
					},
				}, nil
			}
		}
	}
	return nil, nil
}

func brokeAbove(candles []*storedata.Candle, level float64) bool {
	for _, c := range candles[len(candles)-6 : len(candles)-1] {
		if c.Close > level {
			return true
		}
	}
	return false
}

func brokeBelow(candles []*storedata.Candle, level float64) bool {
	for _, c := range candles[len(candles)-6 : len(candles)-1] {
		if c.Close < level {
			return true
		}
	}
	return false
}
