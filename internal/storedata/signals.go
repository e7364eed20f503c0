package storedata

import (
	"context"

	"gorm.io/gorm"
)

// SignalRepository persists signals produced by the strategy set/scorer (S2,
// S3) and consumed by the performance tracker (T1).
type SignalRepository struct {
	db *gorm.DB
}

func (r *SignalRepository) Create(ctx context.Context, s *Signal) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SignalRepository) Save(ctx context.Context, s *Signal) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SignalRepository) ByID(ctx context.Context, id string) (*Signal, error) {
	var s Signal
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// OpenByStatuses returns every signal in one of the given statuses, the set
// the tracker re-evaluates on each cadence tick.
func (r *SignalRepository) OpenByStatuses(ctx context.Context, statuses ...SignalStatus) ([]*Signal, error) {
	var rows []*Signal
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Find(&rows).Error
	return rows, err
}

// BySymbol returns all signals for a symbol, newest first, optionally
// restricted to the given statuses.
func (r *SignalRepository) BySymbol(ctx context.Context, symbol string, statuses ...SignalStatus) ([]*Signal, error) {
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rows []*Signal
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// CountOpen returns the number of PENDING/ACTIVE signals across all symbols.
func (r *SignalRepository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Signal{}).
		Where("status IN ?", []SignalStatus{StatusPending, StatusActive}).
		Count(&n).Error
	return n, err
}

// StrategyOutcomes returns the most recent n closed signals for a strategy,
// newest first.
func (r *SignalRepository) StrategyOutcomes(ctx context.Context, strategy string, n int) ([]*Signal, error) {
	var rows []*Signal
	err := r.db.WithContext(ctx).
		Where("strategy = ? AND status = ?", strategy, StatusClosed).
		Order("closed_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
