package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/eleven-am/taskboard/internal/logger"
)

// EnsureDatabaseExists creates the database named in dsn when it is missing.
// The check runs against the server's postgres maintenance database.
func EnsureDatabaseExists(ctx context.Context, dsn string) error {
	dbName, adminDSN, err := parseDSNForDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}

	db, err := sql.Open(DriverPostgres, adminDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to admin database: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := db.QueryRowContext(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	log := logger.Migration().WithField("database", dbName)
	log.Info("database does not exist, creating")
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	log.Info("database created")
	return nil
}

// parseDSNForDB returns the database named by dsn and a DSN for the same
// server pointing at the postgres database. Both URL and key=value forms are
// accepted.
func parseDSNForDB(dsn string) (dbName string, adminDSN string, err error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("invalid database URL: %w", err)
		}
		dbName = strings.TrimPrefix(u.Path, "/")
		if dbName == "" {
			return "", "", fmt.Errorf("no database name found in URL")
		}
		u.Path = "/postgres"
		return dbName, u.String(), nil
	}

	var adminParts []string
	for _, kv := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key == "dbname" {
			dbName = value
			value = "postgres"
		}
		adminParts = append(adminParts, key+"="+value)
	}
	if dbName == "" {
		return "", "", fmt.Errorf("no database name found in DSN")
	}
	return dbName, strings.Join(adminParts, " "), nil
}

// quoteIdentifier quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// GetDatabaseURL builds a postgres URL from its parts.
func GetDatabaseURL(host, port, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}
