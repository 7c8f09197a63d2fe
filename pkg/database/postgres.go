package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

// DB owns the underlying connection pool and the ORM handle layered on
// top of it. Closing the DB closes the pool for both.
type DB struct {
	conn *sql.DB
	orm  *gorm.DB
}

func openSQLDB(cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return conn, nil
}

// New opens the pool and layers GORM over it, so the pool settings stay
// in effect for ORM traffic too.
func New(cfg Config) (*DB, error) {
	conn, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}

	orm, err := openGorm(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn, orm: orm}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Gorm returns the ORM handle backed by the shared pool.
func (db *DB) Gorm() *gorm.DB {
	return db.orm
}
