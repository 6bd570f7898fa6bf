package storage

import (
	"context"

	"ladder-lab/internal/domain"
)

// PriceSeriesStore provides access to price_series storage.
type PriceSeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error)

	// Symbols lists every symbol with stored points, sorted.
	Symbols(ctx context.Context) ([]string, error)
}

// SimRunStore provides access to sim_runs storage.
type SimRunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimRun, error)

	// GetByBatch retrieves all runs of a sweep batch, ordered by run_id ASC.
	GetByBatch(ctx context.Context, batchID string) ([]*domain.SimRun, error)

	// GetBySymbol retrieves all runs for a symbol, ordered by created_at ASC, run_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.SimRun, error)
}

// WalletStore holds the liquid balance used to fund plans.
type WalletStore interface {
	// Balance returns the current balance; 0 when never set.
	Balance(ctx context.Context) (float64, error)

	// SetBalance replaces the balance. Returns ErrInvalidInput for a negative amount.
	SetBalance(ctx context.Context, amount float64) error
}
