package storedata

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CandleRepository persists and serves OHLCV bars for the data loader (D1)
// and indicator cache (D2).
type CandleRepository struct {
	db *gorm.DB
}

// Upsert inserts or replaces a candle, keyed on (symbol, timeframe, open_time)
// — the loader calls this once per bar on every refresh, so closing bars must
// overwrite rather than duplicate.
func (r *CandleRepository) Upsert(ctx context.Context, c *Candle) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "quote_volume", "trade_count", "closed"}),
	}).Create(c).Error
}

// UpsertBatch upserts many candles in one round trip.
func (r *CandleRepository) UpsertBatch(ctx context.Context, candles []*Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "quote_volume", "trade_count", "closed"}),
	}).Create(&candles).Error
}

// Recent returns the last n candles for (symbol, timeframe) in ascending
// open_time order.
func (r *CandleRepository) Recent(ctx context.Context, symbol, timeframe string, n int) ([]*Candle, error) {
	var rows []*Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("open_time DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// LatestOpenTime returns the newest stored open_time for (symbol, timeframe),
// used to detect gaps before backfilling.
func (r *CandleRepository) LatestOpenTime(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var c Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("open_time DESC").
		Limit(1).
		First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return c.OpenTime, nil
}
