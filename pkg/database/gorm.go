package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openGorm layers a GORM session over an already-open *sql.DB so the
// pool settings applied in openSQLDB stay in effect.
func openGorm(conn *sql.DB, cfg Config) (*gorm.DB, error) {
	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:         newGormLogger(cfg),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return orm, nil
}

// Migrate reconciles the schema against the given models. AutoMigrate
// only adds missing columns and indexes, it never drops anything.
func Migrate(ctx context.Context, db *DB, models ...any) error {
	if err := db.orm.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

func newGormLogger(cfg Config) gormlogger.Interface {
	if !cfg.LogQueries {
		return gormlogger.Discard
	}

	threshold := time.Duration(cfg.SlowQueryMs) * time.Millisecond
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}

	return gormlogger.New(slogPrinter{}, gormlogger.Config{
		SlowThreshold:             threshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// slogPrinter adapts slog to gorm's logger.Writer.
type slogPrinter struct{}

func (slogPrinter) Printf(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}
