// Package tracker implements T1: the performance tracker, which exclusively
// mutates signal lifecycle fields and drives every ACTIVE signal to a
// terminal state before releasing its lock. The exit-rule priority chain,
// partial-exit accounting (30/40/30), breakeven-after-TP1, and trailing
// logic reproduce spec.md §4.8 exactly. Cadence and commit-per-signal
// structure are adapted from the teacher's PerformanceRefresher
// (_examples/nofendian17-stockbit-haka-haki/app/performance_refresher.go),
// which likewise runs on its own ticker and updates one tracked item's
// lifecycle state per pass without letting one failure abort the batch.
package tracker

import (
	"context"
	"log"
	"time"

	"futuressignalengine/internal/lock"
	"futuressignalengine/internal/storedata"
)

// Config mirrors the tracker.* configuration surface of spec.md §6.
type Config struct {
	CadenceSec            int
	TimeStopBars           int           // default 12
	PostTP2TimeStopHours   int           // default 72
	TrailATRMult           float64       // default 1.2
	TP1Fraction            float64       // default 0.30
	TP2Fraction            float64       // default 0.40
	RunnerFraction         float64       // default 0.30
}

// MarkPriceSource supplies the latest mark price for a symbol, preferred
// over the last closed candle's high/low per spec.md §4.8.
type MarkPriceSource interface {
	MarkPrice(ctx context.Context, symbol string) (float64, bool)
}

// Tracker drives ACTIVE rows of the core Signal table to terminal states.
// ActionPriceSignal rows are not loaded or tracked by it.
type Tracker struct {
	cfg      Config
	signals  *storedata.SignalRepository
	candles  *storedata.CandleRepository
	locks    *lock.Manager
	marks    MarkPriceSource
	done     chan struct{}
}

func New(cfg Config, signals *storedata.SignalRepository, candles *storedata.CandleRepository, locks *lock.Manager, marks MarkPriceSource) *Tracker {
	return &Tracker{cfg: cfg, signals: signals, candles: candles, locks: locks, marks: marks, done: make(chan struct{})}
}

// Start runs the tracker on its own cadence (default 60s, spec.md §4.8).
// This ticker is the only caller of RunOnce; a newly closed candle is
// picked up on the next tick, not when it closes.
func (t *Tracker) Start(ctx context.Context) {
	interval := time.Duration(t.cfg.CadenceSec) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

func (t *Tracker) Stop() { close(t.done) }

// RunOnce checks every ACTIVE signal once. Per spec.md §7's propagation
// policy for the tracker, an invariant violation isolates the single
// signal (rollback, log) rather than aborting the whole pass; each
// successful transition is committed individually so a later failure never
// discards earlier commits.
func (t *Tracker) RunOnce(ctx context.Context) {
	active, err := t.signals.OpenByStatuses(ctx, storedata.StatusActive, storedata.StatusPending)
	if err != nil {
		log.Printf("⚠️  tracker: failed to load active signals: %v", err)
		return
	}

	transitioned := 0
	for _, s := range active {
		changed, err := t.checkOne(ctx, s)
		if err != nil {
			log.Printf("⚠️  tracker: check failed for signal %s (%s %s): %v", s.ID, s.Symbol, s.Strategy, err)
			continue
		}
		if changed {
			transitioned++
		}
	}
	if transitioned > 0 {
		log.Printf("✅ tracker transitioned %d/%d signal(s)", transitioned, len(active))
	}
}

// checkOne evaluates the exit resolution rules for a single signal against
// its latest price, applies at most one transition, persists it, and
// releases the lock strictly on terminal transitions.
func (t *Tracker) checkOne(ctx context.Context, s *storedata.Signal) (bool, error) {
	if s.Status == storedata.StatusPending {
		s.Status = storedata.StatusActive
		return true, t.signals.Save(ctx, s)
	}

	candles, err := t.candles.Recent(ctx, s.Symbol, s.Timeframe, 500)
	if err != nil || len(candles) == 0 {
		return false, err
	}
	latest := candles[len(candles)-1]

	price := latest.Close
	if t.marks != nil {
		if p, ok := t.marks.MarkPrice(ctx, s.Symbol); ok {
			price = p
		}
	}

	barsSince := 0
	for _, c := range candles {
		if c.OpenTime.After(s.CreatedAt) {
			barsSince++
		}
	}

	transition := resolveExit(s, latest, price, barsSince, t.cfg)
	if transition == nil {
		return false, nil
	}

	apply(s, transition, t.cfg)

	if err := t.signals.Save(ctx, s); err != nil {
		return false, err
	}

	if s.Status == storedata.StatusClosed {
		if err := t.locks.Release(ctx, s.Symbol, s.Direction, s.Strategy); err != nil {
			log.Printf("⚠️  tracker: lock release failed for signal %s: %v", s.ID, err)
		}
	}
	return true, nil
}

