package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage/memory"
)

func trade(symbol string, price float64, sec int64, ms int64) Trade {
	return Trade{Symbol: symbol, Price: price, Time: time.Unix(sec, ms*int64(time.Millisecond))}
}

func TestRecorder_LastPricePerSecond(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	rec := NewRecorder(RecorderOptions{Store: store, BatchSize: 1, FlushInterval: time.Hour})

	trades := make(chan Trade, 16)
	trades <- trade("BTCUSDT", 100, 10, 0)
	trades <- trade("BTCUSDT", 101, 10, 500)
	trades <- trade("BTCUSDT", 102, 11, 0)
	trades <- trade("BTCUSDT", 103, 12, 0)  // flushes seconds 10 and 11
	trades <- trade("BTCUSDT", 99, 10, 900) // late: second 10 already written
	trades <- trade("ETHUSDT", 50, 12, 0)
	close(trades)

	require.NoError(t, rec.Run(context.Background(), trades))

	btc, err := store.GetBySymbol(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, btc, 3)
	assert.Equal(t, 101.0, btc[0].Price)
	assert.Equal(t, 102.0, btc[1].Price)
	assert.Equal(t, int64(12), btc[2].Timestamp)

	eth, err := store.GetBySymbol(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, eth, 1)
}

func TestRecorder_FlushesOnCancel(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	rec := NewRecorder(RecorderOptions{Store: store, FlushInterval: 10 * time.Millisecond})

	trades := make(chan Trade, 4)
	trades <- trade("SOLUSDT", 20, 1, 0)
	trades <- trade("SOLUSDT", 21, 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, trades) }()

	require.Eventually(t, func() bool {
		pts, _ := store.GetBySymbol(context.Background(), "SOLUSDT")
		return len(pts) == 1 // the ticker writes only the closed second
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	pts, err := store.GetBySymbol(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Len(t, pts, 2)
}

// flakyStore fails the first failures InsertBulk calls.
type flakyStore struct {
	*memory.PriceSeriesStore
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.PriceSeriesStore.InsertBulk(ctx, points)
}

func TestRecorder_KeepsPointsAfterFailedFlush(t *testing.T) {
	store := &flakyStore{PriceSeriesStore: memory.NewPriceSeriesStore(), failures: 1}
	m := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
	rec := NewRecorder(RecorderOptions{Store: store, BatchSize: 1, FlushInterval: time.Hour, Metrics: m})

	trades := make(chan Trade, 8)
	trades <- trade("BTCUSDT", 100, 10, 0)
	trades <- trade("BTCUSDT", 101, 11, 0)   // flush of second 10 fails
	trades <- trade("BTCUSDT", 105, 10, 900) // second 10 is still pending
	close(trades)

	require.NoError(t, rec.Run(context.Background(), trades))

	pts, err := store.GetBySymbol(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, int64(10), pts[0].Timestamp)
	assert.Equal(t, 105.0, pts[0].Price)
	assert.Equal(t, 101.0, pts[1].Price)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestErrors.WithLabelValues("store")))
}

func TestRecorder_StoredSecondDoesNotBlockBatch(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	require.NoError(t, store.InsertBulk(context.Background(), []*domain.PricePoint{
		{Symbol: "BTCUSDT", Timestamp: 10, Price: 1},
	}))
	rec := NewRecorder(RecorderOptions{Store: store, FlushInterval: time.Hour})

	trades := make(chan Trade, 4)
	trades <- trade("BTCUSDT", 100, 10, 0)
	trades <- trade("BTCUSDT", 101, 11, 0)
	trades <- trade("BTCUSDT", 102, 12, 0)
	close(trades)

	require.NoError(t, rec.Run(context.Background(), trades))

	pts, err := store.GetBySymbol(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, 1.0, pts[0].Price, "existing second is kept")
	assert.Equal(t, 101.0, pts[1].Price)
	assert.Equal(t, 102.0, pts[2].Price)
}
