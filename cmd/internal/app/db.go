package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// NewDBPool builds a pgxpool and waits for the database to accept connections,
// retrying with exponential backoff up to cfg.DBConnectRetries times.
// It does NOT run migrations.
func NewDBPool(ctx context.Context, cfg Config, log *slog.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse url: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("db: new pool: %w", err)
	}

	if err := waitForDB(ctx, log, cfg.DBConnectRetries, func(ctx context.Context) error {
		return PingDB(ctx, pool, 3*time.Second)
	}); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// waitForDB calls ping until it succeeds, retries are spent or ctx ends.
func waitForDB(ctx context.Context, log *slog.Logger, retries int, ping func(context.Context) error) error {
	if retries < 0 {
		retries = 0
	}
	b := retry.NewExponential(250 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(uint64(retries), b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			log.Warn("db.ping.fail", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("db: unreachable after %d attempts: %w", attempt, err)
	}
	return nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
