package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/storage"
)

// SimRunStore implements storage.SimRunStore using PostgreSQL.
type SimRunStore struct {
	pool *Pool
}

// NewSimRunStore creates a new SimRunStore.
func NewSimRunStore(pool *Pool) *SimRunStore {
	return &SimRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimRunStore = (*SimRunStore)(nil)

const simRunColumns = `
	run_id, batch_id, symbol, created_at, params,
	series_start, series_end, series_len,
	starting_capital, final_capital, deployed, realized_profit, total_fees,
	hedge_pool, fee_coverage, positions_opened, positions_closed, wins, losses,
	cycles, total_savings, roi, win_rate, max_drawdown
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimRunStore) Insert(ctx context.Context, r *domain.SimRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}

	query := `
		INSERT INTO sim_runs (` + simRunColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24
		)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.BatchID, r.Symbol, r.CreatedAt, params,
		r.SeriesStart, r.SeriesEnd, r.SeriesLen,
		r.StartingCapital, r.FinalCapital, r.Deployed, r.RealizedProfit, r.TotalFees,
		r.HedgePool, r.FeeCoverage, r.PositionsOpened, r.PositionsClosed, r.Wins, r.Losses,
		r.Cycles, r.TotalSavings, r.ROI, r.WinRate, r.MaxDrawdown,
	)
	s.pool.observe("sim_runs_insert", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sim run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimRunStore) GetByID(ctx context.Context, runID string) (*domain.SimRun, error) {
	query := `SELECT ` + simRunColumns + ` FROM sim_runs WHERE run_id = $1`

	start := time.Now()
	r, err := scanSimRun(s.pool.QueryRow(ctx, query, runID))
	s.pool.observe("sim_runs_get", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sim run by id: %w", err)
	}
	return r, nil
}

// GetByBatch retrieves all runs of a batch, ordered by run_id ASC.
func (s *SimRunStore) GetByBatch(ctx context.Context, batchID string) ([]*domain.SimRun, error) {
	query := `SELECT ` + simRunColumns + ` FROM sim_runs WHERE batch_id = $1 ORDER BY run_id ASC`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		s.pool.observe("sim_runs_by_batch", start, err)
		return nil, fmt.Errorf("get sim runs by batch: %w", err)
	}
	defer rows.Close()

	runs, err := scanSimRuns(rows)
	s.pool.observe("sim_runs_by_batch", start, err)
	return runs, err
}

// GetBySymbol retrieves all runs for a symbol, ordered by created_at, run_id.
func (s *SimRunStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.SimRun, error) {
	query := `SELECT ` + simRunColumns + ` FROM sim_runs WHERE symbol = $1 ORDER BY created_at ASC, run_id ASC`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		s.pool.observe("sim_runs_by_symbol", start, err)
		return nil, fmt.Errorf("get sim runs by symbol: %w", err)
	}
	defer rows.Close()

	runs, err := scanSimRuns(rows)
	s.pool.observe("sim_runs_by_symbol", start, err)
	return runs, err
}

// scanSimRun scans a single row into a SimRun.
func scanSimRun(row pgx.Row) (*domain.SimRun, error) {
	var r domain.SimRun
	var params []byte

	err := row.Scan(
		&r.RunID, &r.BatchID, &r.Symbol, &r.CreatedAt, &params,
		&r.SeriesStart, &r.SeriesEnd, &r.SeriesLen,
		&r.StartingCapital, &r.FinalCapital, &r.Deployed, &r.RealizedProfit, &r.TotalFees,
		&r.HedgePool, &r.FeeCoverage, &r.PositionsOpened, &r.PositionsClosed, &r.Wins, &r.Losses,
		&r.Cycles, &r.TotalSavings, &r.ROI, &r.WinRate, &r.MaxDrawdown,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("decode run params: %w", err)
	}
	return &r, nil
}

// scanSimRuns scans multiple rows into a slice of SimRun.
func scanSimRuns(rows pgx.Rows) ([]*domain.SimRun, error) {
	var runs []*domain.SimRun

	for rows.Next() {
		r, err := scanSimRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sim run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sim run rows: %w", err)
	}
	return runs, nil
}
