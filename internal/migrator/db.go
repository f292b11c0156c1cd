// Package migrator opens database connections and brings a live schema in
// line with the embedded one using Atlas.
package migrator

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

type DBConfig struct {
	Driver           string
	URL              string
	ConnMaxLifetime  time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	StatementTimeout time.Duration
}

func NewDBConfig(url string) *DBConfig {
	return &DBConfig{
		Driver:           DriverPostgres,
		URL:              url,
		ConnMaxLifetime:  10 * time.Minute,
		MaxOpenConns:     25,
		MaxIdleConns:     5,
		StatementTimeout: 300 * time.Second,
	}
}

// DriverName returns the database/sql driver to open, defaulting to lib/pq.
func (cfg *DBConfig) DriverName() (string, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		return DriverPostgres, nil
	case DriverPgx:
		return DriverPgx, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects, applies the pool settings and verifies the connection.
func (cfg *DBConfig) Open(ctx context.Context) (*sqlx.DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := sqlx.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds())
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set statement timeout: %w", err)
		}
	}

	return db, nil
}
