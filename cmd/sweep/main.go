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
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"ladder-lab/internal/config"
	"ladder-lab/internal/logger"
	"ladder-lab/internal/marketdata"
	"ladder-lab/internal/observability"
	"ladder-lab/internal/reporting"
	"ladder-lab/internal/simulation"
	"ladder-lab/internal/storage"
	"ladder-lab/internal/storage/backends"
	"ladder-lab/internal/sweep"
)

func main() {
	configPath := flag.String("config", "", "YAML config file; the sweep.grid section defines the cells")
	symbols := flag.String("symbols", "", "Comma-separated symbols (overrides sweep.symbols)")
	workers := flag.Int("workers", 0, "Parallel runs (0 = config, then GOMAXPROCS)")
	start := flag.Int64("start", 0, "Series start, Unix seconds")
	end := flag.Int64("end", 0, "Series end, Unix seconds (0 = full series)")
	csvDir := flag.String("csv-dir", "", "Load <SYMBOL>.csv files from this directory before sweeping")
	outputDir := flag.String("output-dir", "", "Write SWEEP_<batch>.md and .csv here (empty = stdout)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	metricsAddr := flag.String("metrics-addr", "", "Serve /metrics on this address while sweeping")

	flag.Parse()

	stdlog := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "symbols":
			cfg.Sweep.Symbols = splitSymbols(*symbols)
		case "workers":
			cfg.Sweep.Workers = *workers
		case "start":
			cfg.Simulation.Start = *start
		case "end":
			cfg.Simulation.End = *end
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
	if len(cfg.Sweep.Symbols) == 0 {
		stdlog.Fatal("no symbols: set sweep.symbols or --symbols")
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var m *observability.Metrics
	if cfg.Metrics.Enabled {
		m = observability.NewMetrics(cfg.Metrics.Namespace)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	stores, err := backends.Open(ctx, cfg.Storage, zl, m)
	if err != nil {
		stdlog.Fatalf("open storage: %v", err)
	}
	defer stores.Close()

	if *csvDir != "" {
		if err := loadCSVDir(ctx, stores.Prices, *csvDir, cfg.Sweep.Symbols, zl); err != nil {
			stdlog.Fatalf("load csv: %v", err)
		}
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore: stores.Prices,
		RunStore:   stores.Runs,
		Logger:     zl,
		Metrics:    m,
	})
	sweeper := sweep.New(sweep.Options{
		Runner:          runner,
		Workers:         cfg.Sweep.Workers,
		SkipEmptySeries: cfg.Sweep.SkipEmptySeries,
		Logger:          zl,
		Metrics:         m,
	})

	res, err := sweeper.Run(ctx, sweep.Request{
		Symbols: cfg.Sweep.Symbols,
		Start:   cfg.Simulation.Start,
		End:     cfg.Simulation.End,
		Base:    cfg.SimConfig(),
		Grid:    cfg.Sweep.Grid,
	})
	if err != nil {
		stdlog.Fatalf("sweep failed: %v", err)
	}

	report, err := reporting.NewGenerator(stores.Runs).Batch(ctx, res.BatchID)
	if err != nil {
		stdlog.Fatalf("build report: %v", err)
	}

	md := reporting.RenderBatchMarkdown(report)
	if *outputDir == "" {
		fmt.Print(md)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		stdlog.Fatalf("create output dir: %v", err)
	}
	base := filepath.Join(*outputDir, "SWEEP_"+res.BatchID)
	if err := os.WriteFile(base+".md", []byte(md), 0o644); err != nil {
		stdlog.Fatalf("write report: %v", err)
	}
	if err := os.WriteFile(base+".csv", []byte(reporting.RenderRunsCSV(report.Rows)), 0o644); err != nil {
		stdlog.Fatalf("write csv: %v", err)
	}

	fmt.Println("Sweep report generated:")
	fmt.Printf("  - %s.md\n", base)
	fmt.Printf("  - %s.csv\n", base)
	if best := res.Best(); best != nil {
		fmt.Printf("  best: %s %s ROI %.2f%%\n", best.Run.Symbol, best.Run.RunID, best.Run.ROI)
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// loadCSVDir stores <dir>/<SYMBOL>.csv for each symbol that has a file.
func loadCSVDir(ctx context.Context, store storage.PriceSeriesStore, dir string, symbols []string, zl *zap.Logger) error {
	for _, symbol := range symbols {
		path := filepath.Join(dir, symbol+".csv")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			zl.Warn("no csv for symbol", zap.String("symbol", symbol), zap.String("path", path))
			continue
		}
		points, skipped, err := marketdata.LoadCSVFile(path, symbol)
		if err != nil {
			return err
		}
		err = store.InsertBulk(ctx, points)
		if errors.Is(err, storage.ErrDuplicateKey) {
			zl.Warn("csv series already stored", zap.String("symbol", symbol))
			continue
		}
		if err != nil {
			return fmt.Errorf("store %s: %w", symbol, err)
		}
		zl.Info("csv loaded", zap.String("symbol", symbol), zap.Int("points", len(points)), zap.Int("skipped", skipped))
	}
	return nil
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
