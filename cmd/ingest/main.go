package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ladder-lab/internal/config"
	"ladder-lab/internal/domain"
	"ladder-lab/internal/logger"
	"ladder-lab/internal/marketdata"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage"
	"ladder-lab/internal/storage/backends"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (optional)")
	mode := flag.String("mode", "klines", "Ingestion mode: klines, csv, or stream")
	symbols := flag.String("symbols", "", "Comma-separated symbols, e.g. BTCUSDT,ETHUSDT")
	fromTime := flag.String("from-time", "", "Start time for klines (RFC3339)")
	toTime := flag.String("to-time", "", "End time for klines (RFC3339, empty = now)")
	interval := flag.String("interval", "", "Kline interval, e.g. 1m, 1h")
	csvPath := flag.String("csv", "", "CSV file for csv mode (single symbol)")
	duration := flag.Duration("duration", 0, "Stream mode run time (0 = until signal)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty = config)")

	flag.Parse()

	// Setup logger
	stdlog := log.New(os.Stderr, "[ingest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			cfg.Market.Interval = *interval
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.Storage.ClickhouseDSN = *clickhouseDSN
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		case "metrics-addr":
			cfg.Metrics.Enabled = *metricsAddr != ""
			cfg.Metrics.Addr = *metricsAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		stdlog.Fatal(err)
	}

	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		symbolList = cfg.Sweep.Symbols
	}
	if len(symbolList) == 0 {
		stdlog.Fatal("No symbols specified. Use --symbols")
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	var m *observability.Metrics
	if cfg.Metrics.Enabled {
		m = observability.NewMetrics(cfg.Metrics.Namespace)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			zl.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				zl.Error("metrics server", zap.Error(err))
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		zl.Info("initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			stdlog.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			stdlog.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	stores, err := backends.Open(ctx, cfg.Storage, zl, m)
	if err != nil {
		stdlog.Fatalf("open storage: %v", err)
	}

	switch *mode {
	case "klines":
		err = runKlines(ctx, zl, m, cfg.Market, stores.Prices, symbolList, *fromTime, *toTime)
	case "csv":
		err = runCSV(ctx, zl, m, stores.Prices, symbolList, *csvPath)
	case "stream":
		err = runStream(ctx, zl, m, cfg.Market, stores.Prices, symbolList, *duration)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	stores.Close()
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		stdlog.Fatalf("ingest failed: %v", err)
	}
	zl.Info("ingest finished", zap.String("mode", *mode))
}

func runKlines(ctx context.Context, zl *zap.Logger, m *observability.Metrics, mc config.MarketConfig,
	store storage.PriceSeriesStore, symbols []string, from, to string) error {
	start, err := parseTime(from)
	if err != nil {
		return fmt.Errorf("--from-time: %w", err)
	}
	end, err := parseTime(to)
	if err != nil {
		return fmt.Errorf("--to-time: %w", err)
	}

	fetcher := marketdata.NewKlineFetcher(nil, marketdata.KlineOptions{
		Interval: mc.Interval,
		Limit:    mc.Limit,
		Logger:   zl,
	})

	for _, symbol := range symbols {
		points, err := fetcher.Fetch(ctx, symbol, start, end)
		if err != nil {
			m.RecordIngestError("fetch")
			return err
		}
		if err := storeBatches(ctx, store, points, mc.BatchSize); err != nil {
			m.RecordIngestError("store")
			return fmt.Errorf("store %s: %w", symbol, err)
		}
		m.RecordPointsStored("klines", len(points))
		zl.Info("klines stored", zap.String("symbol", symbol), zap.Int("points", len(points)))
	}
	return nil
}

func runCSV(ctx context.Context, zl *zap.Logger, m *observability.Metrics,
	store storage.PriceSeriesStore, symbols []string, path string) error {
	if path == "" {
		return errors.New("--csv is required in csv mode")
	}
	if len(symbols) != 1 {
		return errors.New("csv mode takes exactly one symbol")
	}

	points, skipped, err := marketdata.LoadCSVFile(path, symbols[0])
	if err != nil {
		m.RecordIngestError("decode")
		return err
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		m.RecordIngestError("store")
		return fmt.Errorf("store csv series: %w", err)
	}
	m.RecordPointsStored("csv", len(points))
	zl.Info("csv stored",
		zap.String("symbol", symbols[0]),
		zap.Int("points", len(points)),
		zap.Int("skipped", skipped))
	return nil
}

func runStream(ctx context.Context, zl *zap.Logger, m *observability.Metrics, mc config.MarketConfig,
	store storage.PriceSeriesStore, symbols []string, duration time.Duration) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	url := marketdata.StreamURL(mc.StreamURL, symbols)
	stream, err := marketdata.NewTradeStream(ctx, url, nil, zl, m)
	if err != nil {
		return err
	}
	defer stream.Close()

	rec := marketdata.NewRecorder(marketdata.RecorderOptions{
		Store:         store,
		BatchSize:     mc.BatchSize,
		FlushInterval: mc.FlushInterval,
		Logger:        zl,
		Metrics:       m,
	})

	zl.Info("recording trades", zap.Strings("symbols", symbols), zap.Duration("duration", duration))
	return rec.Run(ctx, stream.Trades())
}

// storeBatches inserts points in slices of size n.
func storeBatches(ctx context.Context, store storage.PriceSeriesStore, points []*domain.PricePoint, n int) error {
	if n <= 0 {
		n = len(points)
	}
	for i := 0; i < len(points); i += n {
		j := min(i+n, len(points))
		if err := store.InsertBulk(ctx, points[i:j]); err != nil {
			return err
		}
	}
	return nil
}

// parseTime converts RFC3339 to Unix seconds; empty is 0.
func parseTime(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
