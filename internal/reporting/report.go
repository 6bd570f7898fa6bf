package reporting

import (
	"time"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/metrics"
)

// PlanReport describes one generated plan and, optionally, its chain projection.
type PlanReport struct {
	GeneratedAt time.Time
	Symbol      string
	Config      domain.PlanConfig
	Plan        domain.Plan
	Cycle       domain.CycleResult
	Chain       *domain.ChainResult // nil unless a chain was requested
}

// RunReport describes a single simulator run.
type RunReport struct {
	GeneratedAt time.Time
	Run         *domain.SimRun
	Summary     metrics.Summary
	Fills       []domain.SimFill
}

// BatchReport describes a sweep batch.
type BatchReport struct {
	GeneratedAt time.Time
	BatchID     string
	Summary     *metrics.BatchSummary
	Rows        []RunRow // ranked by ROI DESC, RunID ASC
}

// RunRow represents one row in the batch runs table.
type RunRow struct {
	RunID           string
	Symbol          string
	Levels          int
	EntryRisk       float64
	ExitLevels      int
	ExitRisk        float64
	SurplusRate     float64
	ChainCycles     bool
	StopLosses      bool
	PositionsOpened int
	Fills           int
	WinRate         float64
	ROI             float64
	MaxDrawdown     float64
	FinalCapital    float64
	TotalFees       float64
	FeeCoverage     float64
}

func runRow(r *domain.SimRun) RunRow {
	return RunRow{
		RunID:           r.RunID,
		Symbol:          r.Symbol,
		Levels:          r.Params.Levels,
		EntryRisk:       r.Params.EntryRisk,
		ExitLevels:      r.Params.ExitLevels,
		ExitRisk:        r.Params.ExitRisk,
		SurplusRate:     r.Params.SurplusRate,
		ChainCycles:     r.Params.ChainCycles,
		StopLosses:      r.Params.StopLosses,
		PositionsOpened: r.PositionsOpened,
		Fills:           r.Wins + r.Losses,
		WinRate:         r.WinRate,
		ROI:             r.ROI,
		MaxDrawdown:     r.MaxDrawdown,
		FinalCapital:    r.FinalCapital,
		TotalFees:       r.TotalFees,
		FeeCoverage:     r.FeeCoverage,
	}
}
