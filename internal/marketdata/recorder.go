package marketdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage"
)

// Recorder reduces trades to one price per symbol and second and writes
// them to a price store in batches.
type Recorder struct {
	store         storage.PriceSeriesStore
	batchSize     int
	flushInterval time.Duration
	source        string
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Store         storage.PriceSeriesStore
	BatchSize     int           // closed seconds buffered before a flush
	FlushInterval time.Duration // flush at least this often
	Source        string        // metrics label, defaults to "stream"
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewRecorder creates a recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	if opts.Source == "" {
		opts.Source = "stream"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Recorder{
		store:         opts.Store,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		source:        opts.Source,
		logger:        opts.Logger.Named("recorder"),
		metrics:       opts.Metrics,
	}
}

type secondKey struct {
	symbol string
	ts     int64
}

// Run consumes trades until ctx is done or trades is closed, then flushes
// what is left. The latest second of each symbol stays open until a later
// trade arrives, so a second is never written twice; trades for a second
// that was already written are dropped.
func (r *Recorder) Run(ctx context.Context, trades <-chan Trade) error {
	pending := make(map[secondKey]float64)
	latest := make(map[string]int64)  // newest second seen per symbol
	written := make(map[string]int64) // newest second stored per symbol

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context, all bool) {
		points := r.closed(pending, latest, all)
		if len(points) == 0 {
			return
		}
		start := time.Now()
		err := r.store.InsertBulk(ctx, points)
		r.metrics.RecordDBQuery("price_series", "insert_bulk", time.Since(start), err)
		switch {
		case err == nil:
			commit(pending, written, points)
		case errors.Is(err, storage.ErrDuplicateKey):
			// one stored second rejects the whole batch; retry the rest alone
			r.logger.Warn("batch rejected, inserting points individually", zap.Int("points", len(points)))
			points = r.insertEach(ctx, pending, written, points)
		default:
			// points stay pending and are retried on the next flush
			r.metrics.RecordIngestError("store")
			r.logger.Error("flush failed", zap.Int("points", len(points)), zap.Error(err))
			return
		}
		r.metrics.RecordPointsStored(r.source, len(points))
		r.logger.Debug("flushed", zap.Int("points", len(points)))
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx), true)
			return nil

		case t, ok := <-trades:
			if !ok {
				flush(ctx, true)
				return nil
			}
			ts := t.Time.Unix()
			if w, seen := written[t.Symbol]; seen && ts <= w {
				continue
			}
			pending[secondKey{t.Symbol, ts}] = t.Price
			if ts > latest[t.Symbol] {
				latest[t.Symbol] = ts
			}
			if len(pending) > r.batchSize {
				flush(ctx, false)
			}

		case <-ticker.C:
			flush(ctx, false)
		}
	}
}

// closed returns the closed seconds of pending (all seconds when all is set)
// ordered by symbol and timestamp. pending is left untouched.
func (r *Recorder) closed(pending map[secondKey]float64, latest map[string]int64, all bool) []*domain.PricePoint {
	var points []*domain.PricePoint
	for k, price := range pending {
		if !all && k.ts >= latest[k.symbol] {
			continue
		}
		points = append(points, &domain.PricePoint{Symbol: k.symbol, Timestamp: k.ts, Price: price})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Symbol != points[j].Symbol {
			return points[i].Symbol < points[j].Symbol
		}
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// insertEach writes points one at a time. Stored and already-present points
// are committed; points that fail otherwise stay pending. It returns the
// points it stored.
func (r *Recorder) insertEach(ctx context.Context, pending map[secondKey]float64, written map[string]int64, points []*domain.PricePoint) []*domain.PricePoint {
	var stored []*domain.PricePoint
	for _, p := range points {
		start := time.Now()
		err := r.store.InsertBulk(ctx, []*domain.PricePoint{p})
		r.metrics.RecordDBQuery("price_series", "insert_bulk", time.Since(start), err)
		switch {
		case err == nil:
			stored = append(stored, p)
			commit(pending, written, []*domain.PricePoint{p})
		case errors.Is(err, storage.ErrDuplicateKey):
			commit(pending, written, []*domain.PricePoint{p})
		default:
			r.metrics.RecordIngestError("store")
			r.logger.Error("insert failed", zap.String("symbol", p.Symbol), zap.Int64("ts", p.Timestamp), zap.Error(err))
		}
	}
	return stored
}

// commit removes written points from pending and advances the per-symbol
// high-water mark.
func commit(pending map[secondKey]float64, written map[string]int64, points []*domain.PricePoint) {
	for _, p := range points {
		delete(pending, secondKey{p.Symbol, p.Timestamp})
		if p.Timestamp > written[p.Symbol] {
			written[p.Symbol] = p.Timestamp
		}
	}
}
