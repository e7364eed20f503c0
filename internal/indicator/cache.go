package indicator

import (
	"fmt"
	"sync"

	"futuressignalengine/internal/storedata"
)

// Cache memoizes Bundles keyed by (symbol, timeframe, newest_close_time).
// Reads are lock-free once a bundle is published; writes are guarded, per
// spec.md §5's "indicator cache (lock-free read / guarded write)" resource
// note — approximated here with a sync.Map, which gives exactly that
// read-mostly characteristic without a custom lock-free structure.
type Cache struct {
	engine Engine
	bundles sync.Map // key string -> *Bundle
	mu      sync.Mutex // serializes concurrent computes for the same key
}

// NewCache builds a Cache backed by the given Engine.
func NewCache(engine Engine) *Cache {
	return &Cache{engine: engine}
}

func key(symbol, timeframe string, newestCloseUnix int64) string {
	return fmt.Sprintf("%s|%s|%d", symbol, timeframe, newestCloseUnix)
}

// GetOrCompute returns the memoized bundle for the candle series' key,
// computing it at most once per analysis cycle even under concurrent
// callers for the same key.
func (c *Cache) GetOrCompute(candles []*storedata.Candle) (*Bundle, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("indicator: empty candle series")
	}
	last := candles[len(candles)-1]
	k := key(last.Symbol, last.Timeframe, last.CloseTime.Unix())

	if v, ok := c.bundles.Load(k); ok {
		return v.(*Bundle), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.bundles.Load(k); ok {
		return v.(*Bundle), nil
	}

	bundle, err := c.engine.ComputeBundle(candles)
	if err != nil {
		return nil, err
	}
	c.bundles.Store(k, bundle)
	return bundle, nil
}

// Evict drops every memoized bundle for a symbol/timeframe older than the
// given newest_close_time, bounding memory growth across a long-running
// process.
func (c *Cache) Evict(symbol, timeframe string, olderThanUnix int64) {
	c.bundles.Range(func(k, v any) bool {
		b := v.(*Bundle)
		if b.Symbol == symbol && b.Timeframe == timeframe && b.NewestCloseTime < olderThanUnix {
			c.bundles.Delete(k)
		}
		return true
	})
}
