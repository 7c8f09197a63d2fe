package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/oveliahealth/ovelia_backend/config"
)

// InitializeDatabases creates the configured application databases when
// they do not exist yet. It connects to the stock 'postgres' database
// to issue the CREATEs, so the configured role needs that privilege.
// Deployment runs this once, before migrations.
func InitializeDatabases(cfg *config.Config) error {
	if len(cfg.Server.Databases) == 0 {
		return fmt.Errorf("no database names configured under server.databases")
	}

	admin := Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   "postgres",
		SSLMode:  cfg.Database.SSLMode,
	}

	conn, err := openSQLDB(admin)
	if err != nil {
		return fmt.Errorf("connect to postgres database: %w", err)
	}
	defer conn.Close()

	for _, name := range cfg.Server.Databases {
		if err := ensureDatabase(conn, name); err != nil {
			return fmt.Errorf("create database %q: %w", name, err)
		}
	}

	return nil
}

// ensureDatabase creates one database unless it already exists. Postgres
// has no CREATE DATABASE IF NOT EXISTS, so existence is checked first.
func ensureDatabase(conn *sql.DB, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := conn.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if exists {
		return nil
	}

	// Identifiers cannot be bound as parameters; %q quotes the name.
	_, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %q", name))
	return err
}
