package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/storedata"
)

func baseSignal() *storedata.Signal {
	return &storedata.Signal{
		Direction:  storedata.DirectionLong,
		Entry:      100,
		SL:         95,
		InitialSL:  95,
		TP1:        105,
		TP2:        floatPtr(110),
		ATRAtEntry: 2,
		CreatedAt:  time.Now().Add(-time.Hour),
	}
}

func floatPtr(v float64) *float64 { return &v }

func candleAt(high, low, close float64) *storedata.Candle {
	return &storedata.Candle{High: high, Low: low, Close: close}
}

func TestResolveExit_LongStopLossTakesPriority(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TimeStopBars: 12}
	tr := resolveExit(s, candleAt(106, 94, 96), 96, 1, cfg)
	if assert.NotNil(t, tr) {
		assert.Equal(t, transitionStopLoss, tr.kind)
	}
}

func TestResolveExit_LongTP1ThenBreakevenReturn(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TimeStopBars: 12, TP1Fraction: 0.30, TP2Fraction: 0.40, RunnerFraction: 0.30}
	tr := resolveExit(s, candleAt(106, 99, 105), 105, 1, cfg)
	assert.Equal(t, transitionTP1, tr.kind)
	apply(s, tr, cfg)
	assert.True(t, s.TP1Hit)
	assert.Equal(t, s.Entry, s.SL)

	tr2 := resolveExit(s, candleAt(103, 99, 100), 100, 2, cfg)
	if assert.NotNil(t, tr2) {
		assert.Equal(t, transitionBreakeven, tr2.kind)
	}
}

func TestResolveExit_LongTimeStopWhenTP1NeverHit(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TimeStopBars: 12}
	tr := resolveExit(s, candleAt(101, 99, 100), 100, 12, cfg)
	if assert.NotNil(t, tr) {
		assert.Equal(t, transitionTimeStop, tr.kind)
	}
}

func TestApply_TP2ActivatesTrailingAndSetsPeak(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TP1Fraction: 0.30, TP2Fraction: 0.40, RunnerFraction: 0.30}
	tr := &transition{kind: transitionTP2, price: 110}
	apply(s, tr, cfg)
	assert.True(t, s.TP1Hit)
	assert.True(t, s.TP2Hit)
	assert.True(t, s.TrailingActive)
	if assert.NotNil(t, s.TrailingPeakPrice) {
		assert.Equal(t, 110.0, *s.TrailingPeakPrice)
	}
}

func TestApply_StopLossAfterTP1PreservesTP1PnL(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TP1Fraction: 0.30, TP2Fraction: 0.40, RunnerFraction: 0.30}
	apply(s, &transition{kind: transitionTP1, price: 105}, cfg)
	apply(s, &transition{kind: transitionStopLoss, price: s.SL}, cfg)
	assert.Equal(t, storedata.StatusClosed, s.Status)
	if assert.NotNil(t, s.FinalPnLPct) {
		assert.Equal(t, s.TP1PnLPct, *s.FinalPnLPct)
	}
}

func TestApply_FullStopLossFromOpenReportsSignedReturn(t *testing.T) {
	s := baseSignal()
	s.Entry = 10
	s.SL = 9
	s.InitialSL = 9
	cfg := Config{}

	apply(s, &transition{kind: transitionStopLoss, price: s.SL}, cfg)

	if assert.NotNil(t, s.FinalPnLPct) {
		assert.InDelta(t, -0.10, *s.FinalPnLPct, 1e-9)
	}
}

func TestApply_TimeStopWithNoTP1RealizesFullPositionAtMark(t *testing.T) {
	s := baseSignal()
	s.Entry = 100
	cfg := Config{}

	apply(s, &transition{kind: transitionTimeStop, price: 100.3}, cfg)

	if assert.NotNil(t, s.FinalPnLPct) {
		assert.InDelta(t, 0.003, *s.FinalPnLPct, 1e-9)
	}
}

func TestApply_TimeStopAfterTP2RealizesOnlyRunnerFraction(t *testing.T) {
	s := baseSignal()
	cfg := Config{TrailATRMult: 1.2, TP1Fraction: 0.30, TP2Fraction: 0.40, RunnerFraction: 0.30}
	apply(s, &transition{kind: transitionTP2, price: 110}, cfg)

	tp1PnL := s.TP1PnLPct
	tp2PnL := s.TP2PnLPct

	apply(s, &transition{kind: transitionTimeStop, price: 112}, cfg)

	wantRunner := signedReturn(s, 112) * cfg.RunnerFraction
	if assert.NotNil(t, s.FinalPnLPct) {
		assert.InDelta(t, tp1PnL+tp2PnL+wantRunner, *s.FinalPnLPct, 1e-9)
	}
}

func TestUpdateMFEMAE_SkipsWhenRiskNearZero(t *testing.T) {
	s := baseSignal()
	s.MFE = 1.0
	updateMFEMAE(s, 120, 0)
	assert.Equal(t, 1.0, s.MFE)
}
