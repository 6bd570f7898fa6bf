package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetricsWith(prometheus.NewRegistry(), "test")
}

func TestRecordRun(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRun(RunSummary{
		Symbol:          "BTCUSDT",
		PositionsOpened: 3,
		TakeProfitFills: 5,
		StopLossFills:   1,
		Timesteps:       100,
		ROI:             4.5,
		FinalCapital:    1045,
	}, 10*time.Millisecond, nil)
	m.RecordRun(RunSummary{}, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("runs ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("runs error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FillsTotal.WithLabelValues("take_profit")); got != 5 {
		t.Errorf("tp fills = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.PositionsOpened); got != 3 {
		t.Errorf("positions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.LastRunROI.WithLabelValues("BTCUSDT")); got != 4.5 {
		t.Errorf("roi = %v, want 4.5", got)
	}
}

func TestSweepCells(t *testing.T) {
	m := newTestMetrics(t)

	m.SweepCellStarted()
	m.SweepCellStarted()
	if got := testutil.ToFloat64(m.SweepInFlight); got != 2 {
		t.Errorf("in flight = %v, want 2", got)
	}

	m.SweepCellDone(nil)
	m.SweepCellDone(errors.New("failed"))
	if got := testutil.ToFloat64(m.SweepInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.SweepCellsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error cells = %v, want 1", got)
	}
}

func TestIngestAndDB(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPointsStored("binance", 500)
	m.RecordIngestError("fetch")
	m.RecordReconnect()
	m.RecordDBQuery("postgres", "insert", time.Millisecond, errors.New("x"))
	m.RecordDBQuery("postgres", "insert", time.Millisecond, nil)

	if got := testutil.ToFloat64(m.PointsStored.WithLabelValues("binance")); got != 500 {
		t.Errorf("points = %v, want 500", got)
	}
	if got := testutil.ToFloat64(m.WSReconnects); got != 1 {
		t.Errorf("reconnects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert")); got != 1 {
		t.Errorf("db errors = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordRun(RunSummary{}, 0, nil)
	m.SweepCellStarted()
	m.SweepCellDone(nil)
	m.RecordSweep(time.Second)
	m.RecordPointsStored("x", 1)
	m.RecordIngestError("x")
	m.RecordReconnect()
	m.RecordMessageDelay(time.Second)
	m.RecordDBQuery("x", "y", 0, nil)
}
