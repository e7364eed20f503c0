package storedata

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockRepository is the durable half of the L1 keyed mutex: a unique
// (symbol, direction, strategy) primary key makes TryAcquire atomic even
// under two racing callers, the same guarantee a Redis SETNX gives but
// expressed against the teacher's Postgres-first persistence style.
type LockRepository struct {
	db *gorm.DB
}

// ErrLocked is returned when a lock is already held and not yet expired.
var ErrLocked = errors.New("signal lock already held")

// TryAcquire inserts a lock row for the key, or — if an existing row has
// expired — reclaims it. Returns ErrLocked if a live lock is already held.
func (r *LockRepository) TryAcquire(ctx context.Context, symbol string, direction Direction, strategy string, ttl time.Duration) error {
	now := time.Now().UTC()
	lock := &SignalLock{
		Symbol:     symbol,
		Direction:  direction,
		Strategy:   strategy,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SignalLock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("symbol = ? AND direction = ? AND strategy = ?", symbol, direction, strategy).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(lock).Error
		case err != nil:
			return err
		case existing.ExpiresAt.Before(now):
			return tx.Save(lock).Error
		default:
			return ErrLocked
		}
	})
}

// Release deletes a lock row outright, used on every terminal signal
// transition so a symbol/direction/strategy can be retraded immediately.
func (r *LockRepository) Release(ctx context.Context, symbol string, direction Direction, strategy string) error {
	return r.db.WithContext(ctx).
		Where("symbol = ? AND direction = ? AND strategy = ?", symbol, direction, strategy).
		Delete(&SignalLock{}).Error
}

// IsLocked reports whether a live (non-expired) lock is held for the key.
func (r *LockRepository) IsLocked(ctx context.Context, symbol string, direction Direction, strategy string) (bool, error) {
	var existing SignalLock
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND direction = ? AND strategy = ?", symbol, direction, strategy).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ExpiresAt.After(time.Now().UTC()), nil
}

// All returns every lock row.
func (r *LockRepository) All(ctx context.Context) ([]*SignalLock, error) {
	var rows []*SignalLock
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}
