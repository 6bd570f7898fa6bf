package metrics

import (
	"context"
	"errors"
	"sort"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/storage"
)

// ErrNoRuns is returned when a batch has no stored runs.
var ErrNoRuns = errors.New("no runs available for aggregation")

// BatchSummary aggregates the runs of one sweep batch.
type BatchSummary struct {
	BatchID string
	Runs    int

	Profitable int
	ROIMean    float64
	ROIMedian  float64
	ROIP10     float64
	ROIP90     float64
	ROIStddev  float64
	ROIMin     float64
	ROIMax     float64

	MeanWinRate    float64
	WorstDrawdown  float64
	TotalFills     int
	TotalFees      float64
	Best           *domain.SimRun
	Worst          *domain.SimRun
	RankedByReturn []*domain.SimRun // ROI DESC, RunID ASC
}

// Aggregator computes batch summaries from stored runs.
type Aggregator struct {
	runStore storage.SimRunStore
}

// NewAggregator creates a new batch aggregator.
func NewAggregator(runStore storage.SimRunStore) *Aggregator {
	return &Aggregator{runStore: runStore}
}

// ComputeBatch loads every run of batchID and summarizes it.
// Returns ErrNoRuns if the batch is empty.
func (a *Aggregator) ComputeBatch(ctx context.Context, batchID string) (*BatchSummary, error) {
	runs, err := a.runStore.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}

	agg := Aggregate(runs)
	agg.BatchID = batchID
	return agg, nil
}

// ComputeSymbol summarizes every stored run of symbol.
// Returns ErrNoRuns if there are none.
func (a *Aggregator) ComputeSymbol(ctx context.Context, symbol string) (*BatchSummary, error) {
	runs, err := a.runStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return Aggregate(runs), nil
}

// Aggregate summarizes runs. runs is not modified.
func Aggregate(runs []*domain.SimRun) *BatchSummary {
	n := len(runs)
	agg := &BatchSummary{Runs: n}
	if n == 0 {
		return agg
	}

	ranked := RankByReturn(runs)
	agg.RankedByReturn = ranked
	agg.Best = ranked[0]
	agg.Worst = ranked[n-1]

	rois := make([]float64, n)
	winRates := 0.0
	for i, r := range ranked {
		rois[i] = r.ROI
		winRates += r.WinRate
		if r.ROI > 0 {
			agg.Profitable++
		}
		if r.MaxDrawdown > agg.WorstDrawdown {
			agg.WorstDrawdown = r.MaxDrawdown
		}
		agg.TotalFills += r.Wins + r.Losses
		agg.TotalFees += r.TotalFees
	}
	sort.Float64s(rois)

	agg.ROIMean = computeMean(rois)
	agg.ROIStddev = computeStddev(rois, agg.ROIMean)
	agg.ROIMedian = computePercentile(rois, 0.50)
	agg.ROIP10 = computePercentile(rois, 0.10)
	agg.ROIP90 = computePercentile(rois, 0.90)
	agg.ROIMin = rois[0]
	agg.ROIMax = rois[n-1]
	agg.MeanWinRate = winRates / float64(n)

	return agg
}

// RankByReturn returns a copy of runs sorted by ROI DESC, RunID ASC.
func RankByReturn(runs []*domain.SimRun) []*domain.SimRun {
	ranked := make([]*domain.SimRun, len(runs))
	copy(ranked, runs)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ROI != ranked[j].ROI {
			return ranked[i].ROI > ranked[j].ROI
		}
		return ranked[i].RunID < ranked[j].RunID
	})
	return ranked
}
