// Package mainloop implements M0: a candle-close-aligned scheduler that
// drives refresh -> analyze -> score -> emit each cycle, while the tracker
// runs independently on its own cadence (spec.md §4.8). The overlap guard
// (drop a tick rather than queue it when a cycle is still running) and the
// overall "wire up every subsystem, then wait for shutdown" shape are
// adapted from the teacher's App.Start
// (_examples/nofendian17-stockbit-haka-haki/app/app.go), which likewise
// connects a DB, connects Redis (optional), starts one goroutine per
// subsystem, and blocks on a signal-driven graceful shutdown.
package mainloop

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"futuressignalengine/internal/actionprice"
	"futuressignalengine/internal/exchange"
	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/lock"
	"futuressignalengine/internal/loader"
	"futuressignalengine/internal/observability"
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/scorer"
	"futuressignalengine/internal/storedata"
	"futuressignalengine/internal/strategy"
	"futuressignalengine/internal/zone"
)

// fastestDuration is the candle-close the scheduler aligns to (spec.md §4.1).
const fastestDuration = 15 * time.Minute

// Config bundles the scheduling parameters a Loop needs beyond what its
// collaborators already carry in their own Config structs.
type Config struct {
	SettleDelaySec int
	LockTTL        time.Duration
}

// Loop is M0.
type Loop struct {
	cfg       Config
	symbols   []string
	exchange  exchange.Client
	loader    *loader.Loader
	candles   *storedata.CandleRepository
	indCache  *indicator.Cache
	zones     *zone.Registry
	strategies strategy.Set
	actionPriceRec *actionprice.Recognizer
	scorerCfg scorer.Config
	weights   scorer.RegimeWeights
	signals   *storedata.SignalRepository
	actionPriceRepo *storedata.ActionPriceRepository
	locks     *lock.Manager
	logger    *observability.Logger

	running atomic.Bool // overlap guard: a still-running cycle causes the next tick to drop
}

// New wires a Loop from its collaborators. All dependencies are already
// constructed by the caller (main.go) so this package stays free of
// connection/config-loading concerns.
func New(cfg Config, symbols []string, exchangeClient exchange.Client, ld *loader.Loader, candles *storedata.CandleRepository,
	indCache *indicator.Cache, zones *zone.Registry, strategies strategy.Set,
	actionPriceRec *actionprice.Recognizer, scorerCfg scorer.Config, weights scorer.RegimeWeights,
	signals *storedata.SignalRepository, actionPriceRepo *storedata.ActionPriceRepository, locks *lock.Manager, logger *observability.Logger) *Loop {
	return &Loop{
		cfg: cfg, symbols: symbols, exchange: exchangeClient, loader: ld, candles: candles,
		indCache: indCache, zones: zones, strategies: strategies,
		actionPriceRec: actionPriceRec, scorerCfg: scorerCfg, weights: weights,
		signals: signals, actionPriceRepo: actionPriceRepo, locks: locks, logger: logger,
	}
}

// Run blocks until ctx is cancelled, firing one cycle per fastest-timeframe
// candle close plus the settle delay.
func (l *Loop) Run(ctx context.Context) {
	settle := time.Duration(l.cfg.SettleDelaySec) * time.Second
	var inflight sync.WaitGroup

	for {
		next := nextCandleClose(time.Now().UTC(), fastestDuration).Add(settle)
		wait := time.Until(next)
		select {
		case <-ctx.Done():
			log.Println("🛑 main loop: shutdown requested, waiting for in-flight cycle")
			inflight.Wait()
			return
		case <-time.After(wait):
		}

		if !l.running.CompareAndSwap(false, true) {
			log.Println("⚠️  main loop: previous cycle still running, dropping this tick")
			continue
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer l.running.Store(false)
			l.runCycle(ctx)
		}()
	}
}

func nextCandleClose(now time.Time, duration time.Duration) time.Time {
	epoch := time.Unix(0, 0).UTC()
	elapsed := now.Sub(epoch)
	remainder := elapsed % duration
	return now.Add(duration - remainder)
}

// runCycle is refresh -> analyze -> score -> emit for every symbol in
// bounded-parallel batches (spec.md §5).
func (l *Loop) runCycle(ctx context.Context) {
	start := time.Now()
	results := l.loader.RefreshAll(ctx, l.symbols, loader.Timeframes)
	ready := make([]string, 0, len(l.symbols))
	for r := range results {
		if r.Err == nil {
			ready = append(ready, r.Symbol)
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 16) // CPU-bound strategy evaluation bound, spec.md §5
	for _, symbol := range ready {
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := l.evaluateSymbol(ctx, sym); err != nil {
				log.Printf("⚠️  main loop: evaluation failed for %s: %v", sym, err)
			}
		}(symbol)
	}
	wg.Wait()

	log.Printf("✅ cycle complete: %d/%d symbols evaluated in %s", len(ready), len(l.symbols), time.Since(start))
}

// evaluateSymbol runs the per-symbol pipeline slice: build the cycle
// snapshot (consistent candles + indicator bundle per spec.md §5's
// ordering guarantee), run the strategy set and Action Price, score
// proposals, persist/lock survivors.
func (l *Loop) evaluateSymbol(ctx context.Context, symbol string) error {
	candles15m, err := l.candles.Recent(ctx, symbol, "15m", 300)
	if err != nil || len(candles15m) < 210 {
		return err
	}
	bundle15m, err := l.indCache.GetOrCompute(candles15m)
	if err != nil {
		return err
	}

	candles1h, err := l.candles.Recent(ctx, symbol, "1h", 300)
	if err != nil || len(candles1h) < 210 {
		return err
	}
	bundle1h, err := l.indCache.GetOrCompute(candles1h)
	if err != nil {
		return err
	}
	classification := regime.Classify(symbol, bundle1h)

	view, err := l.zones.ForSymbol(ctx, symbol)
	if err != nil {
		return err
	}

	markPrice, err := l.exchange.MarkPrice(ctx, symbol)
	if err != nil {
		return err
	}

	in := strategy.Input{
		Symbol:    symbol,
		Candles:   candles15m,
		Bundle:    bundle15m,
		Zones:     view,
		RegimeTag: classification.Tag,
		Bias:      classification.Bias,
		MarkPrice: markPrice,
	}

	proposals, err := l.strategies.EvaluateAll(in)
	if err != nil {
		return err
	}

	var scored []scorer.Scored
	for _, p := range proposals {
		sc := scorer.Score(p, scorer.Context{Regime: classification.Tag}, l.scorerCfg, l.weights)
		l.logger.LogScoringDecision(observability.ScoringDecisionEvent{
			Symbol: symbol, Strategy: p.Strategy, Direction: string(p.Direction),
			FinalScore: sc.Score, GateResult: gateResult(sc),
		})
		scored = append(scored, sc)
	}

	survivors := scorer.Resolve(symbol, scored)
	for _, s := range survivors {
		if err := l.commitSignal(ctx, symbol, classification, s); err != nil {
			log.Printf("⚠️  main loop: commit failed for %s/%s: %v", symbol, s.Proposal.Strategy, err)
		}
	}

	if err := l.evaluateActionPrice(ctx, symbol, candles15m, bundle15m); err != nil {
		log.Printf("⚠️  main loop: action price evaluation failed for %s: %v", symbol, err)
	}

	return nil
}

func gateResult(s scorer.Scored) string {
	if s.Rejected {
		return s.Reason
	}
	return "accepted"
}

// commitSignal acquires the keyed lock, persists the signal, and logs its
// creation. Lock acquisition failure (another strategy/cycle already holds
// the key) is not an error — it is the expected duplicate-suppression path
// (spec.md §8 scenario S5).
func (l *Loop) commitSignal(ctx context.Context, symbol string, classification regime.Classification, s scorer.Scored) error {
	p := s.Proposal
	if err := l.locks.TryAcquire(ctx, symbol, p.Direction, p.Strategy, l.cfg.LockTTL); err != nil {
		return nil
	}

	sig := &storedata.Signal{
		ID:              uuid.New().String(),
		Symbol:          symbol,
		Strategy:        p.Strategy,
		Direction:       p.Direction,
		Entry:           p.Entry,
		SL:              p.SL,
		InitialSL:       p.SL,
		TP1:             p.TP1,
		TP2:             p.TP2,
		TP3:             p.TP3,
		Status:          storedata.StatusPending,
		CreatedAt:       time.Now().UTC(),
		MarketRegime:    string(classification.Tag),
		ConfidenceScore: s.Score,
	}
	if err := l.signals.Create(ctx, sig); err != nil {
		l.locks.Release(ctx, symbol, p.Direction, p.Strategy)
		return err
	}
	return l.logger.SignalCreated(sig)
}

// evaluateActionPrice runs the separate EMA200-body-cross pipeline for a
// symbol's 15m series and persists a signal when one is recognized. This
// pipeline has no lock-manager gate of its own (spec.md §4.5): it emits at
// most one signal per qualifying cross, and duplicate crosses are rejected
// by Recognize's own confirmation-candle check before this is ever reached.
func (l *Loop) evaluateActionPrice(ctx context.Context, symbol string, candles []*storedata.Candle, bundle *indicator.Bundle) error {
	ema200Series := indicator.EMASeries(candles, 200)
	sig, err := l.actionPriceRec.Recognize(candles, bundle, ema200Series)
	if err != nil || sig == nil {
		return err
	}
	sig.ID = uuid.New().String()
	if err := l.actionPriceRepo.Create(ctx, sig); err != nil {
		return err
	}
	return l.logger.LogSignalEvent(observability.SignalEvent{
		EventType: "created", SignalID: sig.ID, Symbol: sig.Symbol, Strategy: "ACTION_PRICE",
		Direction: sig.Direction, Status: sig.Status, Entry: sig.Entry, SL: sig.SL, TP1: sig.TP1,
		TP2: &sig.TP2, ConfidenceScore: sig.TotalScore,
	})
}
