package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"ladder-lab/internal/config"
	"ladder-lab/internal/logger"
	"ladder-lab/internal/lookup"
	"ladder-lab/internal/marketdata"
	"ladder-lab/internal/reporting"
	"ladder-lab/internal/simulation"
	"ladder-lab/internal/storage"
	"ladder-lab/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	symbol := flag.String("symbol", "", "Symbol to backtest (required unless set in config)")
	csvPath := flag.String("csv", "", "Load a timestamp,price CSV into the price store before running")
	start := flag.Int64("start", 0, "Series start, Unix seconds")
	end := flag.Int64("end", 0, "Series end, Unix seconds (0 = full series)")
	capital := flag.Float64("capital", 0, "Starting capital")
	feeScenario := flag.String("fees", "", "Fee scenario: maker, taker, pessimistic")
	chain := flag.Bool("chain", false, "Regenerate entries after each closed cycle")
	stopLosses := flag.Bool("stop-losses", false, "Exit at stop-loss prices")
	batchID := flag.String("batch-id", "", "Batch ID recorded with the run")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	format := flag.String("format", "markdown", "Output: markdown, json")
	fillsCSV := flag.String("fills-csv", "", "Write fills to this CSV file")

	flag.Parse()

	stdlog := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "symbol":
			cfg.Simulation.Symbol = strings.ToUpper(*symbol)
		case "start":
			cfg.Simulation.Start = *start
		case "end":
			cfg.Simulation.End = *end
		case "capital":
			cfg.Simulation.StartingCapital = *capital
		case "fees":
			cfg.Simulation.FeeScenario = *feeScenario
		case "chain":
			cfg.Simulation.ChainCycles = *chain
		case "stop-losses":
			cfg.Simulation.StopLosses = *stopLosses
		case "batch-id":
			cfg.Simulation.BatchID = *batchID
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.Storage.ClickhouseDSN = *clickhouseDSN
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		}
	})

	if cfg.Simulation.Symbol == "" {
		stdlog.Fatal("--symbol is required")
	}
	if err := cfg.Validate(); err != nil {
		stdlog.Fatal(err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		zl.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	stores, err := backends.Open(ctx, cfg.Storage, zl, nil)
	if err != nil {
		stdlog.Fatalf("open storage: %v", err)
	}
	defer stores.Close()

	if *csvPath != "" {
		if err := loadCSV(ctx, stores.Prices, *csvPath, cfg.Simulation.Symbol, zl); err != nil {
			stdlog.Fatalf("load csv: %v", err)
		}
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore: stores.Prices,
		RunStore:   stores.Runs,
		Logger:     zl,
	})

	zl.Info("running backtest",
		zap.String("symbol", cfg.Simulation.Symbol),
		zap.Float64("capital", cfg.Simulation.StartingCapital),
		zap.Bool("chain", cfg.Simulation.ChainCycles))

	out, err := runner.Run(ctx, simulation.Request{
		Symbol:  cfg.Simulation.Symbol,
		Start:   cfg.Simulation.Start,
		End:     cfg.Simulation.End,
		BatchID: cfg.Simulation.BatchID,
		Config:  cfg.SimConfig(),
	})
	if errors.Is(err, lookup.ErrNoPriceData) {
		stdlog.Fatalf("no price data for %s; ingest prices or pass --csv", cfg.Simulation.Symbol)
	}
	if err != nil {
		stdlog.Fatalf("backtest failed: %v", err)
	}

	report := reporting.NewGenerator(stores.Runs).Run(out.Run, out.Result)

	switch strings.ToLower(*format) {
	case "markdown", "md":
		fmt.Print(reporting.RenderRunMarkdown(report))
	case "json":
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	default:
		stdlog.Fatalf("unknown format %q", *format)
	}

	if *fillsCSV != "" {
		if err := os.WriteFile(*fillsCSV, []byte(reporting.RenderFillsCSV(out.Result.Fills)), 0o644); err != nil {
			stdlog.Fatalf("write fills: %v", err)
		}
		zl.Info("fills written", zap.String("path", *fillsCSV), zap.Int("fills", len(out.Result.Fills)))
	}
}

// loadCSV stores a CSV series. Points already stored are reported, not fatal.
func loadCSV(ctx context.Context, store storage.PriceSeriesStore, path, symbol string, zl *zap.Logger) error {
	points, skipped, err := marketdata.LoadCSVFile(path, symbol)
	if err != nil {
		return err
	}
	err = store.InsertBulk(ctx, points)
	if errors.Is(err, storage.ErrDuplicateKey) {
		zl.Warn("csv series already stored", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("store csv series: %w", err)
	}
	zl.Info("csv loaded", zap.String("path", path), zap.Int("points", len(points)), zap.Int("skipped", skipped))
	return nil
}
