package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/idhash"
	"ladder-lab/internal/lookup"
	"ladder-lab/internal/metrics"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage"
)

// Runner executes simulations over stored price series and persists run summaries.
type Runner struct {
	priceStore storage.PriceSeriesStore
	runStore   storage.SimRunStore
	logger     *zap.Logger
	metrics    *observability.Metrics
	clock      func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	PriceStore storage.PriceSeriesStore
	RunStore   storage.SimRunStore // optional; runs are not persisted when nil
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time // stamps CreatedAt; defaults to time.Now
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		priceStore: opts.PriceStore,
		runStore:   opts.RunStore,
		logger:     logger.Named("simulation"),
		metrics:    opts.Metrics,
		clock:      clock,
	}
}

// Request selects the series and configuration of one run.
type Request struct {
	Symbol  string
	Start   int64 // inclusive Unix seconds; with End == 0 the full series is used
	End     int64
	BatchID string

	// Config is the run template. Symbol and Prices are filled from the store.
	Config domain.SimConfig
}

// Outcome is a finished run: the persisted summary plus the full result.
type Outcome struct {
	Run     *domain.SimRun
	Result  *domain.SimResult
	Summary metrics.Summary
}

// Run loads the series, simulates it and stores the summary.
// Steps:
//  1. Load price series for the symbol (optionally a time range)
//  2. Validate ordering and prices
//  3. Simulate
//  4. Summarize and derive a deterministic run ID
//  5. Persist the SimRun
//
// Returns lookup.ErrNoPriceData when the series is empty. Re-running an
// already stored run returns the stored summary.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	started := time.Now()
	out, err := r.run(ctx, req)

	var summary observability.RunSummary
	if out != nil {
		summary = runSummary(out)
	}
	r.metrics.RecordRun(summary, time.Since(started), err)
	return out, err
}

func (r *Runner) run(ctx context.Context, req Request) (*Outcome, error) {
	// 1. Load series
	points, err := r.loadSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", req.Symbol, lookup.ErrNoPriceData)
	}

	// 2. Validate
	if err := ValidateSeries(points); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Symbol, err)
	}

	// 3. Simulate
	cfg := req.Config
	cfg.Symbol = req.Symbol
	cfg.Prices = toValues(points)

	res, err := RunContext(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 4. Summarize
	summary := metrics.Summarize(res)
	run := buildRun(req, cfg, res, summary, points)
	run.CreatedAt = r.clock().Unix()

	r.logger.Debug("run complete",
		zap.String("run_id", run.RunID),
		zap.String("symbol", run.Symbol),
		zap.Int("points", run.SeriesLen),
		zap.Int("positions", run.PositionsOpened),
		zap.Float64("roi", run.ROI),
	)

	// 5. Persist
	if r.runStore != nil {
		if err := r.runStore.Insert(ctx, run); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("store run %s: %w", run.RunID, err)
			}
			stored, getErr := r.runStore.GetByID(ctx, run.RunID)
			if getErr != nil {
				return nil, fmt.Errorf("load stored run %s: %w", run.RunID, getErr)
			}
			r.logger.Info("run already stored", zap.String("run_id", run.RunID))
			run = stored
		}
	}

	return &Outcome{Run: run, Result: res, Summary: summary}, nil
}

func (r *Runner) loadSeries(ctx context.Context, req Request) ([]*domain.PricePoint, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol: %w", storage.ErrInvalidInput)
	}
	if req.End > 0 {
		points, err := r.priceStore.GetByTimeRange(ctx, req.Symbol, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("load %s [%d, %d]: %w", req.Symbol, req.Start, req.End, err)
		}
		return points, nil
	}
	points, err := r.priceStore.GetBySymbol(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.Symbol, err)
	}
	return points, nil
}

// buildRun assembles the persisted summary of a finished run.
func buildRun(req Request, cfg domain.SimConfig, res *domain.SimResult, s metrics.Summary, points []*domain.PricePoint) *domain.SimRun {
	params := domain.ParamsOf(cfg)
	start := points[0].Timestamp
	end := points[len(points)-1].Timestamp

	return &domain.SimRun{
		RunID:           idhash.ComputeRunID(req.BatchID, req.Symbol, start, end, len(points), cfg.StartingCapital, params),
		BatchID:         req.BatchID,
		Symbol:          req.Symbol,
		Params:          params,
		SeriesStart:     start,
		SeriesEnd:       end,
		SeriesLen:       len(points),
		StartingCapital: res.StartingCapital,
		FinalCapital:    res.FinalCapital,
		Deployed:        res.Deployed,
		RealizedProfit:  res.RealizedProfit,
		TotalFees:       res.TotalFees,
		HedgePool:       res.HedgePool,
		FeeCoverage:     res.FeeCoverage,
		PositionsOpened: res.PositionsOpened,
		PositionsClosed: res.PositionsClosed,
		Wins:            res.Wins,
		Losses:          res.Losses,
		Cycles:          res.Cycles,
		TotalSavings:    res.TotalSavings,
		ROI:             s.ROI,
		WinRate:         s.WinRate,
		MaxDrawdown:     s.MaxDrawdown,
	}
}

func runSummary(out *Outcome) observability.RunSummary {
	return observability.RunSummary{
		Symbol:          out.Run.Symbol,
		PositionsOpened: out.Run.PositionsOpened,
		TakeProfitFills: out.Summary.Fills - out.Summary.StopLoss,
		StopLossFills:   out.Summary.StopLoss,
		Timesteps:       out.Run.SeriesLen,
		ROI:             out.Run.ROI,
		FinalCapital:    out.Run.FinalCapital,
	}
}
