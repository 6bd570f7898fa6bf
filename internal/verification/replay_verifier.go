package verification

import (
	"context"
	"errors"
	"fmt"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/simulation"
	"ladder-lab/internal/storage"
)

// ErrRunNotFound is returned when run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier re-runs stored runs against the stored price series.
type ReplayVerifier struct {
	runStore storage.SimRunStore
	runner   *simulation.Runner

	// template is the base config; stored params overwrite every run input
	template domain.SimConfig
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore   storage.SimRunStore
	PriceStore storage.PriceSeriesStore
	Template   domain.SimConfig
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore: opts.RunStore,
		// no run store: replays are never persisted
		runner:   simulation.NewRunner(simulation.RunnerOptions{PriceStore: opts.PriceStore}),
		template: opts.Template,
	}
}

// VerifyRun verifies a single run by replaying its simulation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return v.verify(ctx, stored)
}

// VerifyBatch verifies every run of a sweep batch.
func (v *ReplayVerifier) VerifyBatch(ctx context.Context, batchID string) (*VerificationReport, error) {
	runs, err := v.runStore.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.verify(ctx, run)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID:     run.RunID,
				StoredROI: run.ROI,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, stored *domain.SimRun) (*VerificationResult, error) {
	// 2. Replay simulation over the stored series span
	cfg := stored.Params.ApplyTo(v.template)
	cfg.StartingCapital = stored.StartingCapital

	out, err := v.runner.Run(ctx, simulation.Request{
		Symbol:  stored.Symbol,
		Start:   stored.SeriesStart,
		End:     stored.SeriesEnd,
		BatchID: stored.BatchID,
		Config:  cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", stored.RunID, err)
	}

	// 3. Compare results
	divergences := CompareRuns(stored, out.Run)

	return &VerificationResult{
		RunID:       stored.RunID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		StoredROI:   stored.ROI,
		ReplayedROI: out.Run.ROI,
	}, nil
}
