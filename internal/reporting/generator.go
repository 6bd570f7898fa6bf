package reporting

import (
	"context"
	"time"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/metrics"
	"ladder-lab/internal/plan"
	"ladder-lab/internal/storage"
)

// Generator produces reports from plans, runs and stored batches.
type Generator struct {
	runStore storage.SimRunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. runStore is only needed for
// batch reports.
func NewGenerator(runStore storage.SimRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Plan builds a plan report for cfg. chainCycles > 1 adds a chain projection.
func (g *Generator) Plan(symbol string, cfg domain.PlanConfig, chainCycles int) *PlanReport {
	p := plan.GeneratePlan(cfg)
	r := &PlanReport{
		GeneratedAt: g.now(),
		Symbol:      symbol,
		Config:      cfg,
		Plan:        p,
		Cycle:       plan.ComputeCycle(p, cfg),
	}
	if chainCycles > 1 {
		chain := plan.GenerateChain(cfg, chainCycles)
		r.Chain = &chain
	}
	return r
}

// Run builds a report for one finished run.
func (g *Generator) Run(run *domain.SimRun, res *domain.SimResult) *RunReport {
	r := &RunReport{
		GeneratedAt: g.now(),
		Run:         run,
		Summary:     metrics.Summarize(res),
	}
	if res != nil {
		r.Fills = res.Fills
	}
	return r
}

// Batch loads and summarizes every run of batchID.
// Returns metrics.ErrNoRuns for an empty batch.
func (g *Generator) Batch(ctx context.Context, batchID string) (*BatchReport, error) {
	summary, err := metrics.NewAggregator(g.runStore).ComputeBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return g.batchReport(batchID, summary), nil
}

// Symbol summarizes every stored run of symbol in the batch layout.
func (g *Generator) Symbol(ctx context.Context, symbol string) (*BatchReport, error) {
	summary, err := metrics.NewAggregator(g.runStore).ComputeSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return g.batchReport(symbol, summary), nil
}

func (g *Generator) batchReport(id string, summary *metrics.BatchSummary) *BatchReport {
	rows := make([]RunRow, len(summary.RankedByReturn))
	for i, r := range summary.RankedByReturn {
		rows[i] = runRow(r)
	}

	return &BatchReport{
		GeneratedAt: g.now(),
		BatchID:     id,
		Summary:     summary,
		Rows:        rows,
	}
}
