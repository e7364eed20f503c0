// Package cache provides a thin Redis wrapper. The signal lock (L1) uses it
// as a SETNX fast path on acquire and deletes the key on release; Postgres
// stays authoritative and lock reads go to Postgres. The indicator cache
// (D2) does not use Redis.
// Adapted from the teacher's cache/redis.go.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps *redis.Client with JSON (de)serializing helpers. A nil
// *RedisClient is valid and every method becomes a safe no-op/miss, so
// callers can run without Redis configured and simply fall back to Postgres.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient dials Redis and pings it; on failure it logs a warning and
// returns nil rather than an error, matching the teacher's "Redis is
// optional" stance.
func NewRedisClient(host, port, password string) *RedisClient {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  failed to connect to redis at %s: %v", addr, err)
		return nil
	}

	log.Printf("✅ connected to redis at %s", addr)
	return &RedisClient{client: client}
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Del(ctx, key).Err()
}

// SetNX is the atomic fast-path the keyed mutex (L1) tries first: it
// succeeds only if key was absent, giving lock semantics without a
// round trip to Postgres on the common uncontended case.
func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if r == nil || r.client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, key, data, expiration).Result()
}

func (r *RedisClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
