// Package scorer implements S3: the signal scorer, converting the set of
// per-strategy proposals for one (symbol, cycle) into at most one
// committed signal per (symbol, direction, strategy). The seven-step
// pipeline is spec.md §4.6 verbatim; its shape (accumulate weighted
// factors into a bounded final score, then gate/threshold) is grounded on
// the teacher's Scorecard
// (_examples/nofendian17-stockbit-haka-haki/app/scorecard.go), which
// assembles multiple weighted inputs into one decision the same way.
package scorer

import (
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/strategy"
)

// Config mirrors the scorer.* configuration surface of spec.md §6.
type Config struct {
	EnterThreshold float64 // default 3.0
	MinFactors     int     // default 3
	BTCPenalty     float64 // default 2.0
}

// RegimeWeights maps (regime, strategy) to a multiplier; a weight below 0.5
// causes rejection (spec.md §4.6 step 2).
type RegimeWeights map[regime.Tag]map[string]float64

// DefaultRegimeWeights reproduces spec.md §4.6's worked examples; any pair
// not listed defaults to 1.0.
func DefaultRegimeWeights() RegimeWeights {
	return RegimeWeights{
		regime.Trend: {
			"BREAK_AND_RETEST":   1.5,
			"MA_VWAP_PULLBACK":   1.3,
			"ATR_MOMENTUM":       1.2,
		},
		regime.Range: {
			"VOLUME_PROFILE":  1.5,
			"LIQUIDITY_SWEEP": 1.3,
		},
		regime.Squeeze: {
			"ORDER_FLOW":       1.5,
			"BREAK_AND_RETEST": 1.2,
		},
		regime.Chop: {},
	}
}

func (w RegimeWeights) weightFor(tag regime.Tag, strategyName string) float64 {
	if byStrategy, ok := w[tag]; ok {
		if v, ok := byStrategy[strategyName]; ok {
			return v
		}
	}
	return 1.0
}

// Context carries the exogenous facts and refinement inputs the scoring
// pipeline's later steps need, beyond what a single Proposal already
// carries.
type Context struct {
	Regime          regime.Tag
	BTCTrendAgainst bool    // BTC 1h trend opposes the proposal direction by >0.3%/3-bar
	CVDDivergence   float64 // 0 if none; otherwise the agreeing bonus magnitude in [0.3, 0.8]
	ADX             float64
	RSIExtreme      bool // mean-reversion strategy + RSI extreme reversal
	MeanReversion   bool // true if the proposal's strategy is a mean-reversion category
	ATROverMean     bool // ATR > 2x recent mean
}

// Scored is a proposal carried through the pipeline with its running score
// and the reason it was rejected, if any.
type Scored struct {
	Proposal *strategy.Proposal
	Score    float64
	Rejected bool
	Reason   string
}

// Score runs one proposal through steps 1-6 of the pipeline (step 7,
// conflict resolution, operates across the whole cycle's survivors and
// lives in Resolve).
func Score(p *strategy.Proposal, ctx Context, cfg Config, weights RegimeWeights) Scored {
	factors := countFactors(p)
	if factors < cfg.MinFactors {
		return Scored{Proposal: p, Rejected: true, Reason: "insufficient_factors"}
	}

	score := p.BaseScore

	weight := weights.weightFor(ctx.Regime, p.Strategy)
	if weight < 0.5 {
		return Scored{Proposal: p, Rejected: true, Reason: "regime_weight_too_low"}
	}
	score *= weight

	if ctx.BTCTrendAgainst {
		score -= cfg.BTCPenalty
	}

	if ctx.CVDDivergence > 0 {
		score += clampBonus(ctx.CVDDivergence, 0.3, 0.8)
	}

	if ctx.ADX > 30 && ctx.Regime == regime.Trend {
		score += 1.0
	}
	if ctx.RSIExtreme && ctx.MeanReversion {
		score += 0.5
	}
	if strategyAlignsWithRegime(p.Strategy, ctx.Regime) {
		score += 1.0
	}
	if ctx.ATROverMean {
		score -= 0.5
	}

	if score < cfg.EnterThreshold {
		return Scored{Proposal: p, Score: score, Rejected: true, Reason: "below_enter_threshold"}
	}

	return Scored{Proposal: p, Score: score, Rejected: false}
}

func countFactors(p *strategy.Proposal) int {
	n := 1 // the proposal itself
	f := p.FactorFlags
	if f.HTFAlignment {
		n++
	}
	if f.VolumeConfirmed {
		n++
	}
	if f.CVDAgreement {
		n++
	}
	if f.PriceAction {
		n++
	}
	if f.ZoneConfluence {
		n++
	}
	return n
}

func strategyAlignsWithRegime(strategyName string, tag regime.Tag) bool {
	switch tag {
	case regime.Trend:
		return strategyName == "BREAK_AND_RETEST" || strategyName == "MA_VWAP_PULLBACK" || strategyName == "ATR_MOMENTUM"
	case regime.Squeeze:
		return strategyName == "ORDER_FLOW"
	case regime.Range:
		return strategyName == "VOLUME_PROFILE" || strategyName == "LIQUIDITY_SWEEP"
	default:
		return false
	}
}

func clampBonus(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Key groups survivors for conflict resolution (spec.md §4.6 step 7).
type Key struct {
	Symbol    string
	Direction string
	Strategy  string
}

// Resolve applies step 7: within the cycle, group survivors by
// (symbol, direction, strategy) and keep the highest-scored. Different
// strategies may each win independently on the same symbol/direction.
func Resolve(symbol string, scored []Scored) []Scored {
	best := make(map[Key]Scored)
	for _, s := range scored {
		if s.Rejected {
			continue
		}
		k := Key{Symbol: symbol, Direction: string(s.Proposal.Direction), Strategy: s.Proposal.Strategy}
		if existing, ok := best[k]; !ok || s.Score > existing.Score {
			best[k] = s
		}
	}
	out := make([]Scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	return out
}
