package mainloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/scorer"
	"futuressignalengine/internal/strategy"
)

func TestNextCandleClose_AlignsToBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 7, 0, 0, time.UTC)
	next := nextCandleClose(now, 15*time.Minute)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), next)
}

func TestNextCandleClose_ExactlyOnBoundaryRollsToNext(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)
	next := nextCandleClose(now, 15*time.Minute)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC), next)
}

func TestGateResult_AcceptedWhenNotRejected(t *testing.T) {
	s := scorer.Scored{Proposal: &strategy.Proposal{Strategy: "BREAK_AND_RETEST"}, Score: 4.0}
	assert.Equal(t, "accepted", gateResult(s))
}

func TestGateResult_ReturnsRejectionReason(t *testing.T) {
	s := scorer.Scored{Proposal: &strategy.Proposal{Strategy: "BREAK_AND_RETEST"}, Rejected: true, Reason: "insufficient_factors"}
	assert.Equal(t, "insufficient_factors", gateResult(s))
}
