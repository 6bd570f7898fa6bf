// Package backends opens the store set selected by configuration.
package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ladder-lab/internal/config"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage"
	chstore "ladder-lab/internal/storage/clickhouse"
	"ladder-lab/internal/storage/memory"
	"ladder-lab/internal/storage/migrations"
	pgstore "ladder-lab/internal/storage/postgres"
)

// Stores groups the stores used by the command-line tools.
type Stores struct {
	Prices storage.PriceSeriesStore
	Runs   storage.SimRunStore
	Wallet storage.WalletStore

	closers []func()
}

// Memory returns empty in-memory stores.
func Memory() *Stores {
	return &Stores{
		Prices: memory.NewPriceSeriesStore(),
		Runs:   memory.NewSimRunStore(),
		Wallet: memory.NewWalletStore(0),
	}
}

// Open connects to PostgreSQL (runs, wallet) and ClickHouse (prices) and
// applies migrations, or returns Memory when cfg.UseMemory is set.
// Postgres statement latencies go to metrics, which may be nil.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger, metrics *observability.Metrics) (*Stores, error) {
	if cfg.UseMemory {
		return Memory(), nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "" {
		return nil, fmt.Errorf("postgres and clickhouse DSNs are required without use_memory")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Stores{}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		ConnectTimeout:  cfg.ConnectTimeout,
		Metrics:         metrics,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	s.closers = append(s.closers, func() { conn.Close() })

	s.Runs = pgstore.NewSimRunStore(pool)
	s.Wallet = pgstore.NewWalletStore(pool)
	s.Prices = chstore.NewPriceSeriesStore(conn)

	logger.Info("storage ready", zap.String("runs", "postgres"), zap.String("prices", "clickhouse"))
	return s, nil
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
