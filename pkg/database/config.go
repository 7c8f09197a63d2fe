package database

import (
	"fmt"
	"time"

	"github.com/oveliahealth/ovelia_backend/config"
)

// Config carries everything needed to open one postgres database:
// connection details, pool sizing and query logging.
type Config struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int

	LogQueries  bool
	SlowQueryMs int
}

// DSN returns the lib/pq keyword connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.DBName, c.User, c.Password, c.SSLMode,
	)
}

func (c Config) ConnMaxLifetime() time.Duration {
	if m := c.ConnMaxLifetimeMin; m > 0 {
		return time.Duration(m) * time.Minute
	}
	return 5 * time.Minute
}

// FromCentralConfig maps one database section of the central config.
// Migration switches are not carried here; the app layer reads those
// from the central config directly.
func FromCentralConfig(c config.DatabaseConfig) Config {
	return Config{
		Host:     c.Host,
		Port:     c.Port,
		DBName:   c.DBName,
		User:     c.User,
		Password: c.Password,
		SSLMode:  c.SSLMode,

		MaxOpenConns:       c.Pool.MaxOpenConns,
		MaxIdleConns:       c.Pool.MaxIdleConns,
		ConnMaxLifetimeMin: c.Pool.ConnMaxLifetimeMin,

		LogQueries:  c.Logging.Enabled,
		SlowQueryMs: c.Logging.SlowQueryThresholdMs,
	}
}

// NewDSN is a shortcut for callers that only need the connection string.
func NewDSN(c config.DatabaseConfig) string {
	return FromCentralConfig(c).DSN()
}
