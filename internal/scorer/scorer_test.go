package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/strategy"
)

func proposal(strategyName string, score float64, flags strategy.FactorFlags) *strategy.Proposal {
	return &strategy.Proposal{Strategy: strategyName, BaseScore: score, FactorFlags: flags}
}

func TestScore_RejectsBelowMinFactors(t *testing.T) {
	p := proposal("BREAK_AND_RETEST", 5.0, strategy.FactorFlags{})
	cfg := Config{EnterThreshold: 3.0, MinFactors: 3, BTCPenalty: 2.0}
	s := Score(p, Context{Regime: regime.Trend}, cfg, DefaultRegimeWeights())
	assert.True(t, s.Rejected)
	assert.Equal(t, "insufficient_factors", s.Reason)
}

func TestScore_AppliesRegimeWeightAndThreshold(t *testing.T) {
	p := proposal("BREAK_AND_RETEST", 2.0, strategy.FactorFlags{HTFAlignment: true, PriceAction: true, ZoneConfluence: true})
	cfg := Config{EnterThreshold: 3.0, MinFactors: 3, BTCPenalty: 2.0}
	s := Score(p, Context{Regime: regime.Trend}, cfg, DefaultRegimeWeights())
	assert.False(t, s.Rejected)
	assert.InDelta(t, 2.0*1.5+1.0, s.Score, 0.001) // weight 1.5, +1.0 regime alignment bonus
}

func TestScore_BTCPenaltyCanPushBelowThreshold(t *testing.T) {
	p := proposal("BREAK_AND_RETEST", 2.0, strategy.FactorFlags{HTFAlignment: true, PriceAction: true, ZoneConfluence: true})
	cfg := Config{EnterThreshold: 3.0, MinFactors: 3, BTCPenalty: 2.0}
	s := Score(p, Context{Regime: regime.Trend, BTCTrendAgainst: true}, cfg, DefaultRegimeWeights())
	assert.True(t, s.Rejected)
	assert.Equal(t, "below_enter_threshold", s.Reason)
}

func TestResolve_KeepsHighestPerSymbolDirectionStrategy(t *testing.T) {
	low := Scored{Proposal: proposal("BREAK_AND_RETEST", 1, strategy.FactorFlags{}), Score: 3.0}
	low.Proposal.Direction = "LONG"
	high := Scored{Proposal: proposal("BREAK_AND_RETEST", 1, strategy.FactorFlags{}), Score: 5.0}
	high.Proposal.Direction = "LONG"

	resolved := Resolve("BTCUSDT", []Scored{low, high})
	assert.Len(t, resolved, 1)
	assert.Equal(t, 5.0, resolved[0].Score)
}

func TestResolve_DifferentDirectionsBothSurvive(t *testing.T) {
	longP := Scored{Proposal: proposal("BREAK_AND_RETEST", 1, strategy.FactorFlags{}), Score: 3.0}
	longP.Proposal.Direction = "LONG"
	shortP := Scored{Proposal: proposal("BREAK_AND_RETEST", 1, strategy.FactorFlags{}), Score: 3.0}
	shortP.Proposal.Direction = "SHORT"

	resolved := Resolve("BTCUSDT", []Scored{longP, shortP})
	assert.Len(t, resolved, 2)
}
