// Command futuressignalengine runs the futures-market trading signal
// engine. Entry-point shape (load config, connect dependencies, start
// components, block on a signal-driven graceful shutdown) is adapted from
// the teacher's main.go and App.Start
// (_examples/nofendian17-stockbit-haka-haki/main.go, app/app.go).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"futuressignalengine/internal/actionprice"
	"futuressignalengine/internal/cache"
	"futuressignalengine/internal/config"
	"futuressignalengine/internal/exchange"
	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/lock"
	"futuressignalengine/internal/loader"
	"futuressignalengine/internal/mainloop"
	"futuressignalengine/internal/observability"
	"futuressignalengine/internal/ratelimit"
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/scorer"
	"futuressignalengine/internal/storedata"
	"futuressignalengine/internal/strategy"
	"futuressignalengine/internal/tracker"
	"futuressignalengine/internal/zone"
)

func main() {
	cfg := config.LoadFromEnv()

	cmd := "start"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "start":
		runStart(cfg)
	case "refresh":
		runRefresh(cfg, os.Args[2:])
	case "health":
		runHealth(cfg)
	default:
		log.Fatalf("unknown command %q (expected start|refresh|health)", cmd)
	}
}

// markPriceAdapter bridges exchange.Client's (float64, error) MarkPrice to
// the tracker's (float64, bool) MarkPriceSource contract — the tracker
// treats a failed mark-price fetch as "no live price" and falls back to the
// last closed candle rather than erroring the whole cycle (spec.md §4.8).
type markPriceAdapter struct {
	client exchange.Client
}

func (m markPriceAdapter) MarkPrice(ctx context.Context, symbol string) (float64, bool) {
	price, err := m.client.MarkPrice(ctx, symbol)
	if err != nil {
		return 0, false
	}
	return price, true
}

// layeredMarkPrice prefers the live WebSocket stream (cheap, no rate-limit
// weight) and falls back to a REST call only while the stream hasn't
// delivered a price for that symbol yet.
type layeredMarkPrice struct {
	stream *exchange.MarkPriceStream
	rest   markPriceAdapter
}

func (m layeredMarkPrice) MarkPrice(ctx context.Context, symbol string) (float64, bool) {
	if price, ok := m.stream.MarkPrice(ctx, symbol); ok {
		return price, true
	}
	return m.rest.MarkPrice(ctx, symbol)
}

// restoreLimiterFromLedger seeds a fresh Limiter from the durably persisted
// rate ledger row, so a restart doesn't reopen a full budget mid-window or
// mid-ban (spec.md §3's rate ledger, §4.7-equivalent restart-safety for R1).
func restoreLimiterFromLedger(ctx context.Context, limiter *ratelimit.Limiter, repo *storedata.RateLedgerRepository) {
	windowStart := time.Now().UTC().Truncate(time.Minute)
	row, err := repo.Current(ctx, windowStart)
	if err != nil {
		log.Printf("⚠️  rate ledger restore failed: %v", err)
		return
	}
	var bannedUntil time.Time
	if row.BannedUntil != nil {
		bannedUntil = *row.BannedUntil
	}
	limiter.Restore(row.WindowStart, row.UsedWeight, bannedUntil)
}

// persistLimiterPeriodically flushes the limiter's in-memory accounting to
// the rate ledger table every interval, until ctx is cancelled.
func persistLimiterPeriodically(ctx context.Context, limiter *ratelimit.Limiter, repo *storedata.RateLedgerRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			windowStart, used, bannedUntil := limiter.Snapshot()
			row, err := repo.Current(ctx, windowStart)
			if err != nil {
				log.Printf("⚠️  rate ledger persist failed: %v", err)
				continue
			}
			row.UsedWeight = used
			if !bannedUntil.IsZero() {
				row.BannedUntil = &bannedUntil
			}
			if err := repo.Save(ctx, row); err != nil {
				log.Printf("⚠️  rate ledger persist failed: %v", err)
			}
		}
	}
}

// wired bundles every long-lived component start and refresh share.
type wired struct {
	db        *storedata.Database
	redis     *cache.RedisClient
	exchange  exchange.Client
	limiter   *ratelimit.Limiter
	stream    *exchange.MarkPriceStream
	loader    *loader.Loader
	locks     *lock.Manager
	tracker   *tracker.Tracker
	detector  *regime.Detector
	loop      *mainloop.Loop
	logger    *observability.Logger
}

func wireUp(cfg *config.Config) (*wired, error) {
	db, err := storedata.Connect(cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.Database.User, cfg.Database.Password)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	redisClient := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)

	limiter := ratelimit.New(2400, cfg.Rate.ThresholdFraction, func(until time.Time) {
		log.Printf("🚫 exchange ban active until %s", until.Format(time.RFC3339))
	})
	restoreLimiterFromLedger(context.Background(), limiter, db.RateLedger)
	exchangeClient := exchange.New(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.HTTPTimeout, limiter)
	markStream := exchange.NewMarkPriceStream(cfg.Exchange.WSBaseURL, cfg.Exchange.Symbols)

	ld := loader.New(loader.Config{
		ParallelMax:        cfg.Loader.ParallelMax,
		RefreshHorizonDays: cfg.Loader.RefreshHorizonDays,
		SettleDelaySec:     cfg.Loader.SettleDelaySec,
	}, exchangeClient, db.Candles)

	locks := lock.New(db.Locks, redisClient)

	logger, err := observability.Open("signals.jsonl", "scoring.jsonl")
	if err != nil {
		return nil, fmt.Errorf("open observability logs: %w", err)
	}

	trk := tracker.New(tracker.Config{
		CadenceSec:           cfg.Tracker.CadenceSec,
		TimeStopBars:         cfg.Tracker.TimeStopBars,
		PostTP2TimeStopHours: cfg.Tracker.PostTP2TimeStopHours,
		TrailATRMult:         cfg.Tracker.TrailATRMult,
		TP1Fraction:          cfg.Tracker.TP1Fraction,
		TP2Fraction:          cfg.Tracker.TP2Fraction,
		RunnerFraction:       cfg.Tracker.RunnerFraction,
	}, db.Signals, db.Candles, locks, layeredMarkPrice{stream: markStream, rest: markPriceAdapter{client: exchangeClient}})

	zoneRegistry := zone.New(db.Candles, db.Zones)
	indCache := indicator.NewCache(indicator.NewDefaultEngine())
	detector := regime.NewDetector(db.Candles, indCache, indicator.NewDefaultEngine())
	apRecognizer := actionprice.New(actionprice.Config{
		MaxSLPercent:   cfg.ActionPrice.MaxSLPercent,
		MinTotalScore:  cfg.ActionPrice.MinTotalScore,
		ScalpThreshold: cfg.ActionPrice.MinTotalScore,
		TP2ScalpRR:     cfg.ActionPrice.TP2ScalpRR,
		TP2StandardRR:  cfg.ActionPrice.TP2StandardRR,
		TP1Fraction:    cfg.ActionPrice.TP1Fraction,
		TP2Fraction:    cfg.ActionPrice.TP2Fraction,
		RunnerFraction: cfg.ActionPrice.RunnerFraction,
		TrailATRMult:   cfg.ActionPrice.TrailingATRMultiple,
	})

	scorerCfg := scorer.Config{
		EnterThreshold: cfg.Scorer.EnterThreshold,
		MinFactors:     cfg.Scorer.MinFactors,
		BTCPenalty:     cfg.Scorer.BTCPenalty,
	}

	loop := mainloop.New(mainloop.Config{
		SettleDelaySec: cfg.Loader.SettleDelaySec,
		LockTTL:        time.Duration(cfg.Tracker.CadenceSec*4) * time.Second,
	}, cfg.Exchange.Symbols, exchangeClient, ld, db.Candles, indCache, zoneRegistry,
		strategy.DefaultSet(), apRecognizer, scorerCfg, scorer.DefaultRegimeWeights(),
		db.Signals, db.ActionPrice, locks, logger)

	return &wired{db: db, redis: redisClient, exchange: exchangeClient, limiter: limiter, stream: markStream, loader: ld, locks: locks, tracker: trk, detector: detector, loop: loop, logger: logger}, nil
}

func runStart(cfg *config.Config) {
	w, err := wireUp(cfg)
	if err != nil {
		log.Fatalf("❌ startup failed: %v", err)
	}
	defer w.logger.Close()
	defer w.db.Close()
	defer w.redis.Close()

	ctx, cancel := context.WithCancel(context.Background())

	if n, err := lock.RebuildOnRestart(ctx, w.locks, w.db.Signals, time.Duration(cfg.Tracker.CadenceSec*4)*time.Second); err != nil {
		log.Printf("⚠️  lock rebuild on restart failed: %v", err)
	} else {
		log.Printf("🔒 rebuilt %d lock(s) from open signals", n)
	}

	go w.stream.Run(ctx)
	go w.tracker.Start(ctx)
	go w.loop.Run(ctx)
	go persistLimiterPeriodically(ctx, w.limiter, w.db.RateLedger, 10*time.Second)

	if err := gracefulShutdown(cancel); err != nil {
		log.Printf("⚠️  shutdown: %v", err)
	}
}

func runRefresh(cfg *config.Config, args []string) {
	w, err := wireUp(cfg)
	if err != nil {
		log.Fatalf("❌ startup failed: %v", err)
	}
	defer w.db.Close()
	defer w.redis.Close()

	symbols := cfg.Exchange.Symbols
	days := cfg.Loader.RefreshHorizonDays
	if len(args) >= 1 {
		symbols = []string{args[0]}
	}
	if len(args) >= 2 {
		if d, err := strconv.Atoi(args[1]); err == nil {
			days = d
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for r := range w.loader.RefreshAll(ctx, symbols, loader.Timeframes) {
		if r.Err != nil {
			log.Printf("❌ refresh %s: %v", r.Symbol, r.Err)
			continue
		}
		log.Printf("✅ refreshed %s (horizon %dd)", r.Symbol, days)
	}

	for _, c := range w.detector.RunOnce(ctx, symbols) {
		log.Printf("📊 %s regime=%s bias=%s confidence=%.2f", c.Symbol, c.Tag, c.Bias, c.Confidence)
	}
}

func runHealth(cfg *config.Config) {
	w, err := wireUp(cfg)
	if err != nil {
		log.Fatalf("❌ unhealthy: %v", err)
	}
	defer w.db.Close()
	defer w.redis.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	symbols, err := w.exchange.ExchangeInfo(ctx)
	if err != nil {
		log.Fatalf("❌ exchange unreachable: %v", err)
	}
	count, err := w.db.Signals.CountOpen(ctx)
	if err != nil {
		log.Fatalf("❌ database unreachable: %v", err)
	}
	fmt.Printf("ok: exchange reachable (%d symbols listed), %d signal(s) open\n", len(symbols), count)
}

// gracefulShutdown waits for SIGINT/SIGTERM, cancels the run context, and
// gives in-flight work a bounded window to land — same shape as the
// teacher's gracefulShutdown (app/app.go).
func gracefulShutdown(cancel context.CancelFunc) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Println("🛑 shutdown signal received, stopping new cycles")
	cancel()

	_, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	time.Sleep(2 * time.Second) // let in-flight goroutines observe cancellation
	log.Println("👋 shutdown complete")
	return nil
}
