// Package store is the persistence adapter (C8): a pooled PostgreSQL
// connection, the schema's repository operations, and the
// transient/non-transient retry and error-translation policy of spec
// §4.8, grounded on the teacher's gin handler structure generalized from
// an HTTP request/response shape to a row-per-file shape.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dojevou/midi-pipeline/internal/config"
)

// Pool wraps a pgxpool.Pool sized per the concurrency tuning spec §4.8
// derives from the host's CPU/memory/storage profile.
type Pool struct {
	db *pgxpool.Pool
}

const (
	acquireTimeout = 10 * time.Second
	idleTimeout    = 5 * time.Minute
	maxLifetime    = 30 * time.Minute

	statementCacheCapacity = 100
)

// Open builds the pgxpool.Pool for databaseURL, applying the pool-sizing
// contract of spec §4.8: max connections clamp(1.5*target_concurrency,
// 20, 200), min connections 20% of max (floor 5), 5-minute idle timeout,
// 30-minute max connection lifetime, and a one-minute background health
// check. The 10s acquireTimeout bounds only the initial ping made here;
// later connection acquisitions are bounded by the caller's context alone.
func Open(ctx context.Context, databaseURL string, tuning config.Tuning) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parsing database url: %w", err)
	}

	cfg.MaxConns = tuning.PoolMaxConns
	cfg.MinConns = tuning.PoolMinConns
	cfg.MaxConnLifetime = maxLifetime
	cfg.MaxConnIdleTime = idleTimeout
	cfg.HealthCheckPeriod = time.Minute
	if cfg.ConnConfig != nil {
		cfg.ConnConfig.StatementCacheCapacity = statementCacheCapacity
	}

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: creating pool: %w", err)
	}
	if err := db.Ping(acquireCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initial ping: %w", err)
	}
	return &Pool{db: db}, nil
}

// Close releases every connection in the pool.
func (p *Pool) Close() {
	p.db.Close()
}
