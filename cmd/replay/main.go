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
	"syscall"
	"time"

	"ladder-lab/internal/config"
	"ladder-lab/internal/storage/backends"
	"ladder-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file; its simulation section must match the one the runs were produced with")
	runID := flag.String("run-id", "", "Stored run to replay")
	batchID := flag.String("batch-id", "", "Replay every run of a sweep batch")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if (*runID == "") == (*batchID == "") {
		logger.Fatal("exactly one of --run-id or --batch-id is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	cfg.Storage.UseMemory = false
	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	stores, err := backends.Open(ctx, cfg.Storage, nil, nil)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}
	defer stores.Close()

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:   stores.Runs,
		PriceStore: stores.Prices,
		Template:   cfg.SimConfig(),
	})

	started := time.Now()
	var report *verification.VerificationReport
	if *runID != "" {
		result, err := verifier.VerifyRun(ctx, *runID)
		if errors.Is(err, verification.ErrRunNotFound) {
			logger.Fatalf("run %s not found", *runID)
		}
		if err != nil {
			logger.Fatalf("verify run: %v", err)
		}
		report = &verification.VerificationReport{TotalRuns: 1, Results: []verification.VerificationResult{*result}}
		if result.Match {
			report.MatchedRuns = 1
		} else {
			report.DivergentRuns = 1
		}
	} else {
		report, err = verifier.VerifyBatch(ctx, *batchID)
		if err != nil {
			logger.Fatalf("verify batch: %v", err)
		}
		if report.TotalRuns == 0 {
			logger.Fatalf("batch %s has no stored runs", *batchID)
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(report, time.Since(started))
	}

	if report.DivergentRuns > 0 {
		stores.Close()
		os.Exit(1)
	}
}

func printReport(report *verification.VerificationReport, elapsed time.Duration) {
	for _, r := range report.Results {
		status := "OK"
		if !r.Match {
			status = "DIVERGED"
		}
		fmt.Printf("%-9s %s  roi stored=%.4f%% replayed=%.4f%%\n", status, r.RunID, r.StoredROI, r.ReplayedROI)
		for _, d := range r.Divergences {
			fmt.Printf("          %-16s expected=%v actual=%v\n", d.Field, d.Expected, d.Actual)
		}
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Total Runs:     %d\n", report.TotalRuns)
	fmt.Printf("Matched:        %d\n", report.MatchedRuns)
	fmt.Printf("Divergent:      %d\n", report.DivergentRuns)
	fmt.Printf("Duration:       %v\n", elapsed.Round(time.Millisecond))
}
