package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/lookup"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage"
	"ladder-lab/internal/storage/memory"
)

func fixedClock() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func seedPrices(t *testing.T, store *memory.PriceSeriesStore, symbol string, prices ...float64) {
	t.Helper()
	points := make([]*domain.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = &domain.PricePoint{Symbol: symbol, Timestamp: 1000 + int64(i), Price: p}
	}
	if err := store.InsertBulk(context.Background(), points); err != nil {
		t.Fatalf("seed prices failed: %v", err)
	}
}

func singleLevelTemplate() domain.SimConfig {
	cfg := singleLevelConfig()
	cfg.Symbol = ""
	cfg.Prices = nil
	return cfg
}

func TestRunner_Run_StoresRun(t *testing.T) {
	ctx := context.Background()
	priceStore := memory.NewPriceSeriesStore()
	runStore := memory.NewSimRunStore()
	seedPrices(t, priceStore, "BTCUSDT", 100, 103, 106)

	m := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
	runner := NewRunner(RunnerOptions{
		PriceStore: priceStore,
		RunStore:   runStore,
		Metrics:    m,
		Clock:      fixedClock,
	})

	out, err := runner.Run(ctx, Request{Symbol: "BTCUSDT", BatchID: "b1", Config: singleLevelTemplate()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	run := out.Run
	if run.RunID == "" || run.BatchID != "b1" || run.Symbol != "BTCUSDT" {
		t.Errorf("unexpected identity: %+v", run)
	}
	if run.CreatedAt != 1_700_000_000 {
		t.Errorf("CreatedAt = %d, want fixed clock", run.CreatedAt)
	}
	if run.SeriesStart != 1000 || run.SeriesEnd != 1002 || run.SeriesLen != 3 {
		t.Errorf("series span = [%d, %d] len %d", run.SeriesStart, run.SeriesEnd, run.SeriesLen)
	}
	assertClose(t, "final capital", run.FinalCapital, 1050, 1e-9)
	assertClose(t, "roi", run.ROI, 5, 1e-9)
	if run.WinRate != 1 || run.PositionsClosed != 1 {
		t.Errorf("win rate = %v, closed = %d", run.WinRate, run.PositionsClosed)
	}
	if len(out.Result.Fills) != 1 {
		t.Errorf("result fills = %d, want 1", len(out.Result.Fills))
	}

	stored, err := runStore.GetByID(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FinalCapital != run.FinalCapital {
		t.Errorf("stored final capital = %v", stored.FinalCapital)
	}

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("runs ok metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FillsTotal.WithLabelValues("take_profit")); got != 1 {
		t.Errorf("take profit fills metric = %v, want 1", got)
	}
}

func TestRunner_Run_Idempotent(t *testing.T) {
	ctx := context.Background()
	priceStore := memory.NewPriceSeriesStore()
	runStore := memory.NewSimRunStore()
	seedPrices(t, priceStore, "BTCUSDT", 100, 103, 106)

	runner := NewRunner(RunnerOptions{PriceStore: priceStore, RunStore: runStore, Clock: fixedClock})
	req := Request{Symbol: "BTCUSDT", BatchID: "b1", Config: singleLevelTemplate()}

	first, err := runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if first.Run.RunID != second.Run.RunID {
		t.Errorf("run ids differ: %s vs %s", first.Run.RunID, second.Run.RunID)
	}

	batch, _ := runStore.GetByBatch(ctx, "b1")
	if len(batch) != 1 {
		t.Errorf("stored runs = %d, want 1", len(batch))
	}
}

func TestRunner_Run_DistinctStopLossFraction(t *testing.T) {
	ctx := context.Background()
	priceStore := memory.NewPriceSeriesStore()
	runStore := memory.NewSimRunStore()
	seedPrices(t, priceStore, "BTCUSDT", 100, 94, 90, 106)

	runner := NewRunner(RunnerOptions{PriceStore: priceStore, RunStore: runStore, Clock: fixedClock})

	full := singleLevelTemplate()
	full.StopLosses = true
	partial := full
	partial.Entry.StopLossFraction = 0.1

	a, err := runner.Run(ctx, Request{Symbol: "BTCUSDT", BatchID: "b1", Config: full})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	b, err := runner.Run(ctx, Request{Symbol: "BTCUSDT", BatchID: "b1", Config: partial})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if a.Run.RunID == b.Run.RunID {
		t.Fatalf("configs differing in stop-loss fraction share run id %s", a.Run.RunID)
	}
	assertClose(t, "full stop final capital", a.Run.FinalCapital, 950, 1e-9)
	assertClose(t, "partial stop final capital", b.Run.FinalCapital, 1040, 1e-9)
	assertClose(t, "partial stop result", b.Run.FinalCapital, b.Result.FinalCapital, 0)
	if b.Run.Params.StopLossFraction != 0.1 {
		t.Errorf("stored stop-loss fraction = %v, want 0.1", b.Run.Params.StopLossFraction)
	}

	batch, _ := runStore.GetByBatch(ctx, "b1")
	if len(batch) != 2 {
		t.Errorf("stored runs = %d, want 2", len(batch))
	}
}

func TestRunner_Run_TimeRange(t *testing.T) {
	ctx := context.Background()
	priceStore := memory.NewPriceSeriesStore()
	seedPrices(t, priceStore, "BTCUSDT", 90, 100, 103, 106, 110)

	runner := NewRunner(RunnerOptions{PriceStore: priceStore})

	out, err := runner.Run(ctx, Request{Symbol: "BTCUSDT", Start: 1001, End: 1003, Config: singleLevelTemplate()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Run.SeriesLen != 3 || out.Run.SeriesStart != 1001 {
		t.Errorf("series = len %d start %d, want len 3 start 1001", out.Run.SeriesLen, out.Run.SeriesStart)
	}
	// entries are generated from the first price in range
	if len(out.Result.Positions) != 1 || out.Result.Positions[0].EntryPrice != 100 {
		t.Errorf("unexpected positions: %+v", out.Result.Positions)
	}
}

func TestRunner_Run_NoPriceData(t *testing.T) {
	runner := NewRunner(RunnerOptions{PriceStore: memory.NewPriceSeriesStore()})

	_, err := runner.Run(context.Background(), Request{Symbol: "MISSING", Config: singleLevelTemplate()})
	if !errors.Is(err, lookup.ErrNoPriceData) {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestRunner_Run_EmptySymbol(t *testing.T) {
	runner := NewRunner(RunnerOptions{PriceStore: memory.NewPriceSeriesStore()})

	_, err := runner.Run(context.Background(), Request{Config: singleLevelTemplate()})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidateSeries(t *testing.T) {
	ok := []*domain.PricePoint{{Timestamp: 1, Price: 1}, {Timestamp: 1, Price: 2}, {Timestamp: 2, Price: 3}}
	if err := ValidateSeries(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	unordered := []*domain.PricePoint{{Timestamp: 2, Price: 1}, {Timestamp: 1, Price: 1}}
	if err := ValidateSeries(unordered); !errors.Is(err, ErrUnorderedSeries) {
		t.Errorf("expected ErrUnorderedSeries, got %v", err)
	}

	bad := []*domain.PricePoint{{Timestamp: 1, Price: 0}}
	if err := ValidateSeries(bad); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}
