package storedata

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the GORM connection and provides access to the
// per-bounded-context repositories. Mirrors the teacher's
// database.Database/Connect shape (database/models.go).
type Database struct {
	gormDB *gorm.DB

	Candles     *CandleRepository
	Signals     *SignalRepository
	ActionPrice *ActionPriceRepository
	Zones       *ZoneRepository
	Locks       *LockRepository
	RateLedger  *RateLedgerRepository
}

// Connect opens a PostgreSQL connection via GORM and wires every repository
// on top of it.
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{
		gormDB:      db,
		Candles:     &CandleRepository{db: db},
		Signals:     &SignalRepository{db: db},
		ActionPrice: &ActionPriceRepository{db: db},
		Zones:       &ZoneRepository{db: db},
		Locks:       &LockRepository{db: db},
		RateLedger:  &RateLedgerRepository{db: db},
	}, nil
}

// DB returns the underlying GORM instance for migrations or advanced use.
func (d *Database) DB() *gorm.DB { return d.gormDB }

// Migrate auto-migrates every table this engine owns.
func (d *Database) Migrate() error {
	return d.gormDB.AutoMigrate(
		&Candle{}, &Signal{}, &ActionPriceSignal{}, &Zone{}, &SignalLock{}, &RateLedger{},
	)
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
