package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/eleven-am/taskboard/internal/logger"
)

// TempDBManager creates throwaway databases on the same server as the
// configured one.
type TempDBManager struct {
	baseConfig *DBConfig
}

func NewTempDBManager(config *DBConfig) *TempDBManager {
	return &TempDBManager{baseConfig: config}
}

// CreateTempDB creates database name and connects to it. cleanup closes the
// connection and drops the database.
func (m *TempDBManager) CreateTempDB(ctx context.Context, name string) (*sql.DB, func(), error) {
	admin, err := sql.Open(DriverPostgres, m.buildTempDBURL("postgres"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open admin connection: %w", err)
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(name)); err != nil {
		admin.Close()
		return nil, nil, fmt.Errorf("failed to create temp database %q: %w", name, err)
	}

	log := logger.Migration().WithField("database", name)
	drop := func() {
		if _, err := admin.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+quoteIdentifier(name)); err != nil {
			log.WithError(err).Warn("failed to drop temp database")
		}
		admin.Close()
	}

	temp, err := sql.Open(DriverPostgres, m.buildTempDBURL(name))
	if err != nil {
		drop()
		return nil, nil, fmt.Errorf("failed to connect to temp database: %w", err)
	}
	if err := temp.PingContext(ctx); err != nil {
		temp.Close()
		drop()
		return nil, nil, fmt.Errorf("failed to ping temp database: %w", err)
	}

	log.Debug("temp database created")
	return temp, func() {
		temp.Close()
		drop()
	}, nil
}

// buildTempDBURL swaps the database of the base URL for name.
func (m *TempDBManager) buildTempDBURL(name string) string {
	u, err := url.Parse(m.baseConfig.URL)
	if err != nil || u.Scheme == "" {
		_, admin, perr := parseDSNForDB(m.baseConfig.URL)
		if perr != nil {
			return m.baseConfig.URL
		}
		return strings.Replace(admin, "dbname=postgres", "dbname="+name, 1)
	}
	u.Path = "/" + name
	return u.String()
}
