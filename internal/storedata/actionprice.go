package storedata

import (
	"context"

	"gorm.io/gorm"
)

// ActionPriceRepository persists the parallel Action Price pipeline's own
// signal table, kept separate from SignalRepository because its lifecycle
// (3-tier partial exit, distinct score breakdown) does not share the
// strategy-set signal's shape.
type ActionPriceRepository struct {
	db *gorm.DB
}

func (r *ActionPriceRepository) Create(ctx context.Context, s *ActionPriceSignal) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ActionPriceRepository) Save(ctx context.Context, s *ActionPriceSignal) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *ActionPriceRepository) OpenByStatuses(ctx context.Context, statuses ...SignalStatus) ([]*ActionPriceSignal, error) {
	var rows []*ActionPriceSignal
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Find(&rows).Error
	return rows, err
}

func (r *ActionPriceRepository) BySymbol(ctx context.Context, symbol string, statuses ...SignalStatus) ([]*ActionPriceSignal, error) {
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rows []*ActionPriceSignal
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}
