package tracker

import (
	"time"

	"futuressignalengine/internal/storedata"
)

// transitionKind names which branch of the exit-resolution chain fired.
type transitionKind int

const (
	noTransition transitionKind = iota
	transitionStopLoss
	transitionTP1
	transitionTP2
	transitionTrailing
	transitionBreakeven
	transitionTimeStop
)

type transition struct {
	kind  transitionKind
	price float64
}

// resolveExit applies the per-check priority chain from spec.md §4.8:
// STOP_LOSS > TP2 > TP1 > breakeven return > TRAILING > TIME_STOP (the
// TP1-never-hit bar limit, then the post-TP2 runner limit), mirrored for
// SHORT with highs/lows and comparisons flipped. After TP1 and before TP2
// the stop sits at entry, so touching it resolves as a breakeven return.
// Exactly one transition, or none, is returned per call.
func resolveExit(s *storedata.Signal, candle *storedata.Candle, price float64, barsSinceEntry int, cfg Config) *transition {
	if s.Direction == storedata.DirectionLong {
		if candle.Low <= s.SL {
			if s.TP1Hit && !s.TP2Hit {
				return &transition{kind: transitionBreakeven, price: s.Entry}
			}
			return &transition{kind: transitionStopLoss, price: s.SL}
		}
		if s.TP2 != nil && candle.Close >= *s.TP2 {
			return &transition{kind: transitionTP2, price: *s.TP2}
		}
		if candle.Close >= s.TP1 && !s.TP1Hit {
			return &transition{kind: transitionTP1, price: s.TP1}
		}
		if s.TP1Hit && !s.TP2Hit && price <= s.Entry {
			return &transition{kind: transitionBreakeven, price: s.Entry}
		}
		if s.TrailingActive && s.TrailingPeakPrice != nil {
			retrace := *s.TrailingPeakPrice - price
			if retrace >= cfg.TrailATRMult*s.ATRAtEntry {
				return &transition{kind: transitionTrailing, price: price}
			}
		}
	} else {
		if candle.High >= s.SL {
			if s.TP1Hit && !s.TP2Hit {
				return &transition{kind: transitionBreakeven, price: s.Entry}
			}
			return &transition{kind: transitionStopLoss, price: s.SL}
		}
		if s.TP2 != nil && candle.Close <= *s.TP2 {
			return &transition{kind: transitionTP2, price: *s.TP2}
		}
		if candle.Close <= s.TP1 && !s.TP1Hit {
			return &transition{kind: transitionTP1, price: s.TP1}
		}
		if s.TP1Hit && !s.TP2Hit && price >= s.Entry {
			return &transition{kind: transitionBreakeven, price: s.Entry}
		}
		if s.TrailingActive && s.TrailingPeakPrice != nil {
			retrace := price - *s.TrailingPeakPrice
			if retrace >= cfg.TrailATRMult*s.ATRAtEntry {
				return &transition{kind: transitionTrailing, price: price}
			}
		}
	}

	if !s.TP1Hit && barsSinceEntry >= cfg.TimeStopBars {
		return &transition{kind: transitionTimeStop, price: price}
	}
	if s.TP2Hit && s.ClosedAt == nil {
		postTP2Window := time.Duration(cfg.PostTP2TimeStopHours) * time.Hour
		if s.TP2ClosedAt != nil && time.Since(*s.TP2ClosedAt) >= postTP2Window {
			return &transition{kind: transitionTimeStop, price: price}
		}
	}

	return nil
}

// apply mutates a signal in place for the resolved transition, implementing
// the partial-exit accounting (30/40/30) and invariants of spec.md §4.8.
func apply(s *storedata.Signal, t *transition, cfg Config) {
	now := time.Now().UTC()
	risk := absF(s.Entry - s.InitialSL)

	switch t.kind {
	case transitionStopLoss:
		closeSignal(s, storedata.ExitStopLoss, t.price, now, finalPnLForStop(s, risk))

	case transitionTP1:
		s.TP1Hit = true
		s.TP1ClosedAt = &now
		s.TP1PnLPct = signedReturn(s, s.TP1) * cfg.TP1Fraction
		s.SL = s.Entry // move to breakeven; never adverse per invariant 3

	case transitionTP2:
		if !s.TP1Hit {
			s.TP1Hit = true
			s.TP1ClosedAt = &now
			s.TP1PnLPct = signedReturn(s, s.TP1) * cfg.TP1Fraction
		}
		s.TP2Hit = true
		s.TP2ClosedAt = &now
		s.TP2PnLPct = signedReturn(s, *s.TP2) * cfg.TP2Fraction
		s.TrailingActive = true
		peak := t.price
		s.TrailingPeakPrice = &peak

	case transitionTrailing:
		runnerPnL := signedReturn(s, t.price) * cfg.RunnerFraction
		s.RunnerPnLPct = runnerPnL
		final := s.TP1PnLPct + s.TP2PnLPct + runnerPnL
		closeSignal(s, storedata.ExitTrailing, t.price, now, final)

	case transitionBreakeven:
		final := s.TP1PnLPct
		closeSignal(s, storedata.ExitBreakeven, t.price, now, final)

	case transitionTimeStop:
		// Whatever fraction is still open at the time stop realizes at the
		// current mark: the full position if TP1 never fired, or just the
		// runner fraction if this is the post-TP2 stale-runner time stop
		// (resolveExit only reaches transitionTimeStop in one of those two
		// shapes).
		remaining := 1.0
		if s.TP1Hit {
			remaining = cfg.RunnerFraction
		}
		final := s.TP1PnLPct + s.TP2PnLPct + signedReturn(s, t.price)*remaining
		closeSignal(s, storedata.ExitTimeStop, t.price, now, final)
	}

	updateMFEMAE(s, t.price, risk)

	// Trailing peak monotonicity invariant: once active, only move in the
	// favorable direction on subsequent (non-closing) ticks.
	if s.TrailingActive && s.Status != storedata.StatusClosed && s.TrailingPeakPrice != nil {
		if s.Direction == storedata.DirectionLong && t.price > *s.TrailingPeakPrice {
			peak := t.price
			s.TrailingPeakPrice = &peak
		}
		if s.Direction == storedata.DirectionShort && t.price < *s.TrailingPeakPrice {
			peak := t.price
			s.TrailingPeakPrice = &peak
		}
	}
}

func closeSignal(s *storedata.Signal, reason storedata.ExitReason, price float64, now time.Time, finalPnLPct float64) {
	s.Status = storedata.StatusClosed
	s.ExitReason = &reason
	s.ClosedAt = &now
	s.FinalPnLPct = &finalPnLPct
}

// finalPnLForStop computes the stop-loss final PnL: if TP1 already fired,
// the SL sits at breakeven (spec.md invariant 3), so the realized loss on
// the still-open fraction is zero and only the preserved TP1 partial (plus
// the TP2 partial, if TP2 also fired) counts.
// Otherwise the full open position exits at s.SL, so the loss is the same
// percent-return convention every other tier uses (signedReturn), not an
// R-multiple.
func finalPnLForStop(s *storedata.Signal, risk float64) float64 {
	if s.TP1Hit {
		return s.TP1PnLPct + s.TP2PnLPct
	}
	if risk <= 0 {
		return 0
	}
	return signedReturn(s, s.SL)
}

func signedReturn(s *storedata.Signal, price float64) float64 {
	if s.Entry == 0 {
		return 0
	}
	ret := (price - s.Entry) / s.Entry
	if s.Direction == storedata.DirectionShort {
		ret = -ret
	}
	return ret
}

// updateMFEMAE records MFE/MAE in R-multiples using the initial risk
// distance; skipped when risk is near zero to avoid division by zero
// (spec.md §4.8).
func updateMFEMAE(s *storedata.Signal, price, risk float64) {
	const epsilon = 1e-9
	if risk < epsilon {
		return
	}
	favorable := (price - s.Entry) / risk
	if s.Direction == storedata.DirectionShort {
		favorable = -favorable
	}
	if favorable > s.MFE {
		s.MFE = favorable
	}
	if favorable < s.MAE {
		s.MAE = favorable
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
