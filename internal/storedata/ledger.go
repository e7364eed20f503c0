package storedata

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RateLedgerRepository persists R1's sliding-minute-window accounting so a
// restart restores the limiter's own used-weight count and ban deadline
// instead of resetting the budget to zero (which would risk a burst that trips a ban).
type RateLedgerRepository struct {
	db *gorm.DB
}

// Current returns the ledger row for the active minute window, creating one
// if none exists yet.
func (r *RateLedgerRepository) Current(ctx context.Context, windowStart time.Time) (*RateLedger, error) {
	var row RateLedger
	err := r.db.WithContext(ctx).
		Where("window_start = ?", windowStart).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = RateLedger{WindowStart: windowStart}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *RateLedgerRepository) Save(ctx context.Context, row *RateLedger) error {
	return r.db.WithContext(ctx).Save(row).Error
}
