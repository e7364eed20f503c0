// Package lock implements L1: a keyed mutex over (symbol, direction,
// strategy) with a TTL, combining Redis SETNX as a fast uncontended path in
// front of the durable Postgres row that remains the source of truth.
// Grounded on the teacher's pairing of cache/redis.go in front of
// database/models.go for read-through caching, generalized here to a
// write-path lock rather than a read cache.
package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"futuressignalengine/internal/cache"
	"futuressignalengine/internal/storedata"
)

// Manager is the single entry point the main loop uses to serialize signal
// creation (spec.md §5: "signal creation is serialized by the lock on
// (symbol, direction, strategy_name)").
type Manager struct {
	durable *storedata.LockRepository
	redis   *cache.RedisClient
}

func New(durable *storedata.LockRepository, redis *cache.RedisClient) *Manager {
	return &Manager{durable: durable, redis: redis}
}

func redisKey(symbol string, direction storedata.Direction, strategyName string) string {
	return fmt.Sprintf("lock:%s:%s:%s", symbol, direction, strategyName)
}

// TryAcquire attempts the Redis fast path first (cheap, uncontended case);
// on a miss or Redis being unavailable it falls through to the durable
// Postgres compare-and-insert, which is always the final authority.
func (m *Manager) TryAcquire(ctx context.Context, symbol string, direction storedata.Direction, strategyName string, ttl time.Duration) error {
	if m.redis != nil {
		acquired, err := m.redis.SetNX(ctx, redisKey(symbol, direction, strategyName), time.Now().UTC(), ttl)
		if err == nil && !acquired {
			return storedata.ErrLocked
		}
	}

	if err := m.durable.TryAcquire(ctx, symbol, direction, strategyName, ttl); err != nil {
		return err
	}
	return nil
}

// Release drops both the Redis fast-path entry and the durable row. Called
// strictly on terminal signal transitions (spec.md §4.8).
func (m *Manager) Release(ctx context.Context, symbol string, direction storedata.Direction, strategyName string) error {
	if m.redis != nil {
		if err := m.redis.Delete(ctx, redisKey(symbol, direction, strategyName)); err != nil {
			log.Printf("⚠️  redis lock release miss for %s/%s/%s: %v", symbol, direction, strategyName, err)
		}
	}
	return m.durable.Release(ctx, symbol, direction, strategyName)
}

// IsLocked checks the durable row; the Redis fast path is write-only
// optimization and never consulted for reads, since Postgres is the
// authority a restart rebuilds from.
func (m *Manager) IsLocked(ctx context.Context, symbol string, direction storedata.Direction, strategyName string) (bool, error) {
	return m.durable.IsLocked(ctx, symbol, direction, strategyName)
}

// RebuildOnRestart reloads every active signal and ensures a lock row
// exists for each (symbol, direction, strategy_name), recreating any that
// are missing, per spec.md §4.7: "on process start, active signals are
// reloaded and their locks rebuilt so restarts do not duplicate-emit."
func RebuildOnRestart(ctx context.Context, m *Manager, signals *storedata.SignalRepository, ttl time.Duration) (int, error) {
	active, err := signals.OpenByStatuses(ctx, storedata.StatusPending, storedata.StatusActive)
	if err != nil {
		return 0, err
	}

	rebuilt := 0
	for _, s := range active {
		locked, err := m.IsLocked(ctx, s.Symbol, s.Direction, s.Strategy)
		if err != nil {
			log.Printf("⚠️  lock rebuild check failed for signal %s: %v", s.ID, err)
			continue
		}
		if locked {
			continue
		}
		if err := m.durable.TryAcquire(ctx, s.Symbol, s.Direction, s.Strategy, ttl); err != nil {
			log.Printf("⚠️  lock rebuild failed for signal %s: %v", s.ID, err)
			continue
		}
		rebuilt++
	}
	log.Printf("✅ lock manager rebuilt %d lock(s) from %d active signal(s)", rebuilt, len(active))
	return rebuilt, nil
}
