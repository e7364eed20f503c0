package storedata

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ZoneRepository persists the zone registry's (D3) computed support/
// resistance levels. The registry is the single writer; every other
// component only reads through this repository.
type ZoneRepository struct {
	db *gorm.DB
}

// ReplaceForSymbol atomically swaps a symbol's zone set, matching the D3
// requirement that readers never observe a half-written zone set.
func (r *ZoneRepository) ReplaceForSymbol(ctx context.Context, symbol string, zones []*Zone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("symbol = ?", symbol).Delete(&Zone{}).Error; err != nil {
			return err
		}
		if len(zones) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&zones).Error
	})
}

func (r *ZoneRepository) ForSymbol(ctx context.Context, symbol string) ([]*Zone, error) {
	var rows []*Zone
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("low ASC").Find(&rows).Error
	return rows, err
}
