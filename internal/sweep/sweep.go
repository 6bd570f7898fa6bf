// Package sweep runs a parameter grid across symbols on a bounded worker pool.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/lookup"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/simulation"
)

// ErrEmptySweep is returned when there is nothing to run.
var ErrEmptySweep = errors.New("sweep has no symbols")

// Runner is the part of simulation.Runner a sweep needs.
type Runner interface {
	Run(ctx context.Context, req simulation.Request) (*simulation.Outcome, error)
}

// Sweeper fans grid cells out to a Runner.
type Sweeper struct {
	runner     Runner
	workers    int
	skipEmpty  bool
	logger     *zap.Logger
	metrics    *observability.Metrics
	newBatchID func() string
}

// Options for creating a Sweeper.
type Options struct {
	Runner  Runner
	Workers int // defaults to GOMAXPROCS

	// SkipEmptySeries logs and skips symbols without price data instead of
	// failing the batch.
	SkipEmptySeries bool

	Logger     *zap.Logger
	Metrics    *observability.Metrics
	NewBatchID func() string // defaults to a random UUID
}

// New creates a Sweeper.
func New(opts Options) *Sweeper {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newBatchID := opts.NewBatchID
	if newBatchID == nil {
		newBatchID = func() string { return uuid.New().String() }
	}
	return &Sweeper{
		runner:     opts.Runner,
		workers:    workers,
		skipEmpty:  opts.SkipEmptySeries,
		logger:     logger.Named("sweep"),
		metrics:    opts.Metrics,
		newBatchID: newBatchID,
	}
}

// Request describes one sweep batch.
type Request struct {
	Symbols []string
	Start   int64 // optional time range, see simulation.Request
	End     int64
	Base    domain.SimConfig
	Grid    Grid
}

// Result contains the outcomes of a batch, in (symbol, cell) order.
// Skipped cells are nil.
type Result struct {
	BatchID  string
	Cells    int
	Skipped  int
	Outcomes []*simulation.Outcome
}

// Run executes every (symbol, cell) pair. The first failure cancels the
// remaining cells and is returned.
func (s *Sweeper) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Symbols) == 0 {
		return nil, ErrEmptySweep
	}

	started := time.Now()
	cells := req.Grid.Cells(req.Base)
	total := len(req.Symbols) * len(cells)
	result := &Result{
		BatchID:  s.newBatchID(),
		Cells:    total,
		Outcomes: make([]*simulation.Outcome, total),
	}
	skipped := make([]bool, total)

	s.logger.Info("sweep started",
		zap.String("batch_id", result.BatchID),
		zap.Int("symbols", len(req.Symbols)),
		zap.Int("cells", total),
		zap.Int("workers", s.workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for si, symbol := range req.Symbols {
		for ci, cfg := range cells {
			idx := si*len(cells) + ci
			simReq := simulation.Request{
				Symbol:  symbol,
				Start:   req.Start,
				End:     req.End,
				BatchID: result.BatchID,
				Config:  cfg,
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				s.metrics.SweepCellStarted()
				out, err := s.runner.Run(gctx, simReq)
				s.metrics.SweepCellDone(err)
				if err != nil {
					if s.skipEmpty && errors.Is(err, lookup.ErrNoPriceData) {
						s.logger.Warn("skipping symbol without prices", zap.String("symbol", symbol))
						skipped[idx] = true
						return nil
					}
					return fmt.Errorf("cell %d (%s): %w", idx, symbol, err)
				}
				result.Outcomes[idx] = out
				return nil
			})
		}
	}

	err := g.Wait()
	s.metrics.RecordSweep(time.Since(started))
	if err != nil {
		s.logger.Error("sweep failed", zap.String("batch_id", result.BatchID), zap.Error(err))
		return nil, err
	}

	for _, sk := range skipped {
		if sk {
			result.Skipped++
		}
	}

	s.logger.Info("sweep finished",
		zap.String("batch_id", result.BatchID),
		zap.Int("cells", total),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Best returns the completed outcome with the highest ROI, ties broken by
// lower RunID. Returns nil when nothing completed.
func (r *Result) Best() *simulation.Outcome {
	var best *simulation.Outcome
	for _, o := range r.Outcomes {
		if o == nil {
			continue
		}
		if best == nil || o.Run.ROI > best.Run.ROI ||
			(o.Run.ROI == best.Run.ROI && o.Run.RunID < best.Run.RunID) {
			best = o
		}
	}
	return best
}
