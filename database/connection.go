package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// DB wraps the pgx connection pool shared by all repositories
type DB struct {
	*pgxpool.Pool
}

// PoolOption tunes the pool before it is created
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the number of open connections
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithConnLifetime recycles connections after the given lifetime
func WithConnLifetime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnLifetime = d
		}
	}
}

// NewConnection creates a new database connection pool
func NewConnection(ctx context.Context, databaseURL string, opts ...PoolOption) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Ledger and draw timestamps are compared as epoch values, keep every session in UTC
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(log.Fields{
		"maxConns": config.MaxConns,
		"database": config.ConnConfig.Database,
	}).Debug("Database pool ready")

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}
