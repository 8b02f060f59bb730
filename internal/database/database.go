// Package database opens the SQL store that holds Canvas environments and
// user tokens, and scopes repository calls to a shared transaction.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported drivers. Migrations exist for both under migrations/<driver>.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// ErrUnsupportedDriver is returned by Connect for a driver with no token repository.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

const defaultPingTimeout = 5 * time.Second

// Config holds the pool settings for the token store.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	// PingTimeout bounds the startup reachability check. Zero means 5s.
	PingTimeout time.Duration
}

// Connect opens a pool for cfg and checks that the server answers before
// returning it. The pool is closed again when the check fails.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if !slices.Contains([]string{DriverPostgres, DriverMySQL}, cfg.Driver) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s pool: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", cfg.Driver, err)
	}

	return db, nil
}
