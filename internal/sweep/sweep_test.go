package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/lookup"
	"ladder-lab/internal/simulation"
	"ladder-lab/internal/storage/memory"
)

func TestGrid_Cells(t *testing.T) {
	base := simulation.NewConfig("", 1000, nil)
	grid := Grid{
		Levels:    []int{2, 4},
		EntryRisk: []float64{0.3, 0.5, 0.7},
	}

	assert.Equal(t, 6, grid.Size())

	cells := grid.Cells(base)
	require.Len(t, cells, 6)
	assert.Equal(t, 2, cells[0].Entry.Levels)
	assert.Equal(t, 0.3, cells[0].Entry.Risk)
	assert.Equal(t, 0.5, cells[1].Entry.Risk)
	assert.Equal(t, 4, cells[3].Entry.Levels)
	assert.Equal(t, 0.3, cells[3].Entry.Risk)

	// untouched axes keep the base value
	for _, c := range cells {
		assert.Equal(t, base.Entry.Steepness, c.Entry.Steepness)
	}

	empty := Grid{}
	assert.Equal(t, 1, empty.Size())
	assert.Len(t, empty.Cells(base), 1)
}

func seed(t *testing.T, store *memory.PriceSeriesStore, symbol string, prices ...float64) {
	t.Helper()
	points := make([]*domain.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = &domain.PricePoint{Symbol: symbol, Timestamp: 1000 + int64(i)*60, Price: p}
	}
	require.NoError(t, store.InsertBulk(context.Background(), points))
}

func baseConfig() domain.SimConfig {
	cfg := simulation.NewConfig("", 1000, nil)
	cfg.Entry.RangeBelow = 0.1
	cfg.Entry.SurplusRate = 0.02
	cfg.BuyFeeRate = 0.001
	cfg.SellFeeRate = 0.001
	return cfg
}

func TestSweeper_Run(t *testing.T) {
	ctx := context.Background()
	priceStore := memory.NewPriceSeriesStore()
	runStore := memory.NewSimRunStore()
	seed(t, priceStore, "BTCUSDT", 100, 96, 92, 95, 99, 103, 106)
	seed(t, priceStore, "ETHUSDT", 10, 9.5, 9.2, 9.8, 10.4)

	runner := simulation.NewRunner(simulation.RunnerOptions{PriceStore: priceStore, RunStore: runStore})
	s := New(Options{
		Runner:     runner,
		Workers:    3,
		NewBatchID: func() string { return "batch-test" },
	})

	res, err := s.Run(ctx, Request{
		Symbols: []string{"BTCUSDT", "ETHUSDT"},
		Base:    baseConfig(),
		Grid:    Grid{Levels: []int{1, 3}, EntryRisk: []float64{0.3, 0.7}},
	})
	require.NoError(t, err)

	assert.Equal(t, "batch-test", res.BatchID)
	assert.Equal(t, 8, res.Cells)
	assert.Equal(t, 0, res.Skipped)
	for i, o := range res.Outcomes {
		require.NotNil(t, o, "outcome %d", i)
		assert.Equal(t, "batch-test", o.Run.BatchID)
	}
	assert.Equal(t, "BTCUSDT", res.Outcomes[0].Run.Symbol)
	assert.Equal(t, "ETHUSDT", res.Outcomes[7].Run.Symbol)

	stored, err := runStore.GetByBatch(ctx, "batch-test")
	require.NoError(t, err)
	assert.Len(t, stored, 8)

	best := res.Best()
	require.NotNil(t, best)
	for _, o := range res.Outcomes {
		assert.LessOrEqual(t, o.Run.ROI, best.Run.ROI)
	}
}

func TestSweeper_SkipEmptySeries(t *testing.T) {
	priceStore := memory.NewPriceSeriesStore()
	seed(t, priceStore, "BTCUSDT", 100, 105)

	runner := simulation.NewRunner(simulation.RunnerOptions{PriceStore: priceStore})
	req := Request{
		Symbols: []string{"BTCUSDT", "MISSING"},
		Base:    baseConfig(),
		Grid:    Grid{EntryRisk: []float64{0.3, 0.7}},
	}

	_, err := New(Options{Runner: runner}).Run(context.Background(), req)
	assert.ErrorIs(t, err, lookup.ErrNoPriceData)

	res, err := New(Options{Runner: runner, SkipEmptySeries: true}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Nil(t, res.Outcomes[2])
	assert.NotNil(t, res.Outcomes[0])
}

type failingRunner struct {
	calls atomic.Int32
}

func (r *failingRunner) Run(ctx context.Context, _ simulation.Request) (*simulation.Outcome, error) {
	r.calls.Add(1)
	return nil, errors.New("boom")
}

func TestSweeper_FirstErrorWins(t *testing.T) {
	runner := &failingRunner{}
	s := New(Options{Runner: runner, Workers: 1})

	_, err := s.Run(context.Background(), Request{
		Symbols: []string{"A"},
		Base:    baseConfig(),
		Grid:    Grid{Levels: []int{1, 2, 3, 4, 5}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	// with one worker the group is cancelled after the first failure
	assert.Less(t, int(runner.calls.Load()), 5)
}

func TestSweeper_NoSymbols(t *testing.T) {
	_, err := New(Options{Runner: &failingRunner{}}).Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptySweep)
}
