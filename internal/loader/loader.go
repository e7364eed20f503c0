// Package loader implements D1: keeps per-(symbol, timeframe) candle series
// fresh and gap-free. Its bounded-parallel refresh-per-symbol shape is
// adapted from the teacher's TradeAggregator
// (_examples/nofendian17-stockbit-haka-haki/app/trade_aggregator.go), which
// runs a worker pool over active symbols on a ticker and isolates
// per-symbol failures the same way spec.md §4.3 requires.
package loader

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"futuressignalengine/internal/exchange"
	"futuressignalengine/internal/storedata"
)

// Timeframes are the canonical series this engine maintains (spec.md §4.3).
var Timeframes = []string{"15m", "1h", "4h", "1d"}

var canonicalDuration = map[string]time.Duration{
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

const klinesPageCap = 1000

// Config mirrors the loader.* configuration surface of spec.md §6.
type Config struct {
	ParallelMax        int
	RefreshHorizonDays int
	SettleDelaySec      int
}

// Loader is D1.
type Loader struct {
	cfg      Config
	exchange exchange.Client
	candles  *storedata.CandleRepository
}

func New(cfg Config, exchangeClient exchange.Client, candles *storedata.CandleRepository) *Loader {
	return &Loader{cfg: cfg, exchange: exchangeClient, candles: candles}
}

// SymbolResult is one symbol's outcome from a refresh pass — failures are
// isolated per spec.md §4.3's failure semantics, never abort the batch.
type SymbolResult struct {
	Symbol string
	Err    error
}

// RefreshAll runs RefreshRecent for every symbol with a bounded worker pool
// (default 50, spec.md §4.3 parallelism), returning a ready-queue channel
// callers can range over to start strategy evaluation as symbols complete.
func (l *Loader) RefreshAll(ctx context.Context, symbols []string, timeframes []string) <-chan SymbolResult {
	poolSize := l.cfg.ParallelMax
	if poolSize <= 0 {
		poolSize = 50
	}

	results := make(chan SymbolResult, len(symbols))
	sem := make(chan struct{}, poolSize)
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			err := l.RefreshRecent(ctx, sym, timeframes, l.cfg.RefreshHorizonDays)
			if err != nil {
				logUnhealthy(sym, err)
			}
			results <- SymbolResult{Symbol: sym, Err: err}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// RefreshRecent fetches and upserts the gap between the last stored
// open_time and now for each requested timeframe, dropping any
// not-yet-closed trailing candle the exchange returns.
func (l *Loader) RefreshRecent(ctx context.Context, symbol string, timeframes []string, horizonDays int) error {
	for _, tf := range timeframes {
		if err := l.refreshOne(ctx, symbol, tf, horizonDays); err != nil {
			return fmt.Errorf("loader: refresh %s/%s: %w", symbol, tf, err)
		}
	}
	return nil
}

func (l *Loader) refreshOne(ctx context.Context, symbol, timeframe string, horizonDays int) error {
	duration, ok := canonicalDuration[timeframe]
	if !ok {
		return fmt.Errorf("unknown timeframe %q", timeframe)
	}

	latest, err := l.candles.LatestOpenTime(ctx, symbol, timeframe)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	// latest is the open time of the newest stored closed candle, so the
	// most recently closed period is covered while now is within two
	// periods of it.
	currentPeriodCovered := !latest.IsZero() && now.Sub(latest) < 2*duration
	if currentPeriodCovered {
		return nil // freshness short-circuit: DB already covers the current period
	}

	limit := klinesPageCap
	if !latest.IsZero() {
		gapBars := int(now.Sub(latest)/duration) + 2
		if gapBars < klinesPageCap {
			limit = gapBars
		}
	} else {
		horizonBars := int(time.Duration(horizonDays) * 24 * time.Hour / duration)
		if horizonBars > 0 && horizonBars < limit {
			limit = horizonBars
		}
	}

	klines, err := l.exchange.Klines(ctx, symbol, timeframe, limit)
	if err != nil {
		return err
	}

	candles := make([]*storedata.Candle, 0, len(klines))
	for i, k := range klines {
		// Drop any not-yet-closed trailing candle the exchange returns.
		if i == len(klines)-1 && k.CloseTime.After(now) {
			continue
		}
		candles = append(candles, &storedata.Candle{
			Symbol:      k.Symbol,
			Timeframe:   timeframe,
			OpenTime:    k.OpenTime,
			Open:        k.Open,
			High:        k.High,
			Low:         k.Low,
			Close:       k.Close,
			Volume:      k.Volume,
			QuoteVolume: k.QuoteVolume,
			CloseTime:   k.CloseTime,
			TradeCount:  k.TradeCount,
			Closed:      true,
		})
	}

	return l.candles.UpsertBatch(ctx, candles)
}

// BackfillGap paginates klines calls within the exchange's per-request cap
// to fill an arbitrary [from, to) range, respecting rate limits through the
// same exchange.Client each call already reserves against.
func (l *Loader) BackfillGap(ctx context.Context, symbol, timeframe string, from, to time.Time) error {
	duration, ok := canonicalDuration[timeframe]
	if !ok {
		return fmt.Errorf("unknown timeframe %q", timeframe)
	}

	cursor := from
	for cursor.Before(to) {
		remaining := int(to.Sub(cursor)/duration) + 1
		limit := remaining
		if limit > klinesPageCap {
			limit = klinesPageCap
		}
		klines, err := l.exchange.Klines(ctx, symbol, timeframe, limit)
		if err != nil {
			return err
		}
		if len(klines) == 0 {
			break
		}

		candles := make([]*storedata.Candle, 0, len(klines))
		for _, k := range klines {
			if k.OpenTime.Before(cursor) || k.CloseTime.After(to) {
				continue
			}
			candles = append(candles, &storedata.Candle{
				Symbol: k.Symbol, Timeframe: timeframe, OpenTime: k.OpenTime,
				Open: k.Open, High: k.High, Low: k.Low, Close: k.Close,
				Volume: k.Volume, QuoteVolume: k.QuoteVolume, CloseTime: k.CloseTime,
				TradeCount: k.TradeCount, Closed: true,
			})
		}
		if err := l.candles.UpsertBatch(ctx, candles); err != nil {
			return err
		}

		cursor = klines[len(klines)-1].CloseTime
	}
	return nil
}

// RecentCandles returns the most recent n closed candles, newest-first
// reversed to ascending — a thin pass-through documented here because
// spec.md §4.3 names it as a D1 operation distinct from the repository's
// own Recent, which strategies call directly through the repository.
func (l *Loader) RecentCandles(ctx context.Context, symbol, timeframe string, n int) ([]*storedata.Candle, error) {
	return l.candles.Recent(ctx, symbol, timeframe, n)
}

// IsDense reports whether consecutive candles in the series are exactly one
// canonical duration apart — spec.md §4.3's gap-detection definition.
func IsDense(candles []*storedata.Candle, timeframe string) bool {
	duration, ok := canonicalDuration[timeframe]
	if !ok || len(candles) < 2 {
		return true
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.Equal(candles[i-1].OpenTime.Add(duration)) {
			return false
		}
	}
	return true
}

func logUnhealthy(symbol string, err error) {
	log.Printf("⚠️  loader: %s marked unhealthy for this cycle: %v", symbol, err)
}
