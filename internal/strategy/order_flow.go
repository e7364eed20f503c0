package strategy

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
)

const (
	orderFlowImbalanceThreshold = 0.2 // |imbalance| fraction favoring one side
	orderFlowCVDLookback        = 5
	orderFlowATRBufferMult      = 0.3
)

// orderFlow fires only in SQUEEZE when the depth imbalance agrees with the
// direction of the recent CVD change. It reads a single depth-imbalance
// snapshot and does not check proximity to any zone or value-area level.
// 15m.
type orderFlow struct{}

func NewOrderFlow() Strategy { return &orderFlow{} }

func (s *orderFlow) Name() string      { return "ORDER_FLOW" }
func (s *orderFlow) Timeframe() string { return "15m" }

func (s *orderFlow) Evaluate(in Input) (*Proposal, error) {
	if in.RegimeTag != regime.Squeeze {
		return nil, nil
	}
	if in.Exogenous.DepthImbalance == nil || len(in.Exogenous.CVD) < orderFlowCVDLookback {
		return nil, nil
	}
	imbalance := *in.Exogenous.DepthImbalance
	if imbalance < orderFlowImbalanceThreshold && imbalance > -orderFlowImbalanceThreshold {
		return nil, nil
	}

	cvdDelta := in.Exogenous.CVD[len(in.Exogenous.CVD)-1] - in.Exogenous.CVD[len(in.Exogenous.CVD)-orderFlowCVDLookback]
	confirm := last(in.Candles)
	atr := in.Bundle.ATR

	bullish := imbalance > 0 && cvdDelta > 0
	bearish := imbalance < 0 && cvdDelta < 0
	if !bullish && !bearish {
		return nil, nil
	}

	if bullish {
		entry := confirm.Close
		sl := confirm.Low - atr*orderFlowATRBufferMult
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
			TP2:       floatPtr(entry + risk*1.5),
			BaseScore: 2.0,
			FactorFlags: FactorFlags{
				CVDAgreement: true,
				HTFAlignment: in.Bias == regime.Bullish,
			},
		}, nil
	}

	entry := confirm.Close
	sl := confirm.High + atr*orderFlowATRBufferMult
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
		TP2:       floatPtr(entry - risk*1.5),
		BaseScore: 2.0,
		FactorFlags: FactorFlags{
			CVDAgreement: true,
			HTFAlignment: in.Bias == regime.Bearish,
		},
	}, nil
}
