package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ladder-lab/internal/observability"
)

// Pool is the shared connection pool of the run and wallet stores.
type Pool struct {
	*pgxpool.Pool
	metrics *observability.Metrics
}

// PoolOptions sizes the pool. Zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration // bounds the initial ping
	Metrics         *observability.Metrics
}

// NewPool connects to dsn and pings the server once.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = min(opts.MinConns, cfg.MaxConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pgPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	p := &Pool{Pool: pgPool, metrics: opts.Metrics}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	start := time.Now()
	err = pgPool.Ping(pingCtx)
	p.observe("ping", start, err)
	if err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return p, nil
}

// Close closes every connection of the pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// observe records one statement's latency under the postgres label.
func (p *Pool) observe(operation string, start time.Time, err error) {
	// a miss is an answer, not a failed query
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	p.metrics.RecordDBQuery("postgres", operation, time.Since(start), err)
}

// unique_violation
const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
