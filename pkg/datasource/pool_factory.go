package datasource

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendata-inc/vendata-engine/pkg/retry"
)

// PoolConfig fixes the sizing of a pool at creation time. The router never
// resizes an existing pool.
type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	MaxIdleTime time.Duration
}

// PoolFactory constructs a connection pool from a connection string. The
// router uses PostgresPoolFactory by default; tests inject their own.
type PoolFactory func(ctx context.Context, connString string, cfg PoolConfig) (*pgxpool.Pool, error)

// poolConstructionRetry bounds how long construction waits out a flaky
// network before the failure surfaces to the router.
var poolConstructionRetry = &retry.Config{
	MaxAttempts:  3,
	Backoff:      retry.Exponential(200*time.Millisecond, 2*time.Second),
	JitterFactor: 0.1,
}

// PostgresPoolFactory builds a pgx pool and verifies it can reach the server,
// so an unreachable host or rejected credentials fail at construction time
// rather than on first query. Construction is retried with exponential
// backoff before giving up.
func PostgresPoolFactory(ctx context.Context, connString string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime

	return retry.DoWithResult(ctx, poolConstructionRetry, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
}
