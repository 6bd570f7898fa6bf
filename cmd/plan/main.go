package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ladder-lab/internal/config"
	"ladder-lab/internal/domain"
	"ladder-lab/internal/plan"
	"ladder-lab/internal/reporting"
	"ladder-lab/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol label for the report")

	// Plan inputs; set flags override the config file
	currentPrice := flag.Float64("price", 0, "Current market price")
	funds := flag.Float64("funds", 0, "Capital to distribute across levels")
	levels := flag.Int("levels", 0, "Number of entry levels")
	steepness := flag.Float64("steepness", 0, "Sigmoid steepness of entry spacing")
	risk := flag.Float64("risk", 0, "Allocation bias in [0,1]")
	direction := flag.String("direction", "", "long or short")
	rangeAbove := flag.Float64("range-above", 0, "Price window above current")
	rangeBelow := flag.Float64("range-below", 0, "Price window below current")
	surplus := flag.Float64("surplus", 0, "Profit margin above break-even")
	stopLosses := flag.Bool("stop-losses", false, "Generate stop-loss rows")
	cycles := flag.Int("cycles", 0, "Chain cycles to project (1 = single plan)")
	useWallet := flag.Bool("use-wallet", false, "Add the stored wallet balance to --funds")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	format := flag.String("format", "table", "Output: table, markdown, csv, json")

	flag.Parse()

	logger := log.New(os.Stderr, "[plan] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "price":
			cfg.Plan.CurrentPrice = *currentPrice
		case "funds":
			cfg.Plan.AvailableFunds = *funds
		case "levels":
			cfg.Plan.Levels = *levels
		case "steepness":
			cfg.Plan.Steepness = *steepness
		case "risk":
			cfg.Plan.Risk = *risk
		case "direction":
			cfg.Plan.Direction = strings.ToLower(*direction)
		case "range-above":
			cfg.Plan.RangeAbove = *rangeAbove
		case "range-below":
			cfg.Plan.RangeBelow = *rangeBelow
		case "surplus":
			cfg.Plan.SurplusRate = *surplus
		case "stop-losses":
			cfg.Plan.StopLosses = *stopLosses
		case "cycles":
			cfg.Plan.ChainCycles = *cycles
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	pc := cfg.PlanConfig()

	if *useWallet {
		ctx := context.Background()
		stores, err := backends.Open(ctx, cfg.Storage, nil, nil)
		if err != nil {
			logger.Fatalf("open storage: %v", err)
		}
		defer stores.Close()

		pc.AvailableFunds, err = plan.FundingFromWallet(ctx, stores.Wallet, pc.AvailableFunds, true)
		if err != nil {
			logger.Fatalf("fund from wallet: %v", err)
		}
	}

	report := reporting.NewGenerator(nil).Plan(*symbol, pc, cfg.Plan.ChainCycles)

	switch strings.ToLower(*format) {
	case "table":
		printPlan(report)
	case "markdown", "md":
		fmt.Print(reporting.RenderPlanMarkdown(report))
	case "csv":
		fmt.Print(reporting.RenderPlanCSV(report.Plan))
	case "json":
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	default:
		logger.Fatalf("unknown format %q", *format)
	}
}

// printPlan writes a coloured ladder table to stdout.
func printPlan(r *reporting.PlanReport) {
	p := r.Plan
	cfg := r.Config

	fmt.Println(cyan("══════════════════════════════════════════════════════════════"))
	fmt.Printf(" %s  %s  price %.8g  funds %.2f  levels %d\n",
		boldCyan(r.Symbol), directionLabel(cfg.Direction), cfg.CurrentPrice, cfg.AvailableFunds, cfg.Levels)
	fmt.Printf(" overhead %.4f%%  effective %.4f%%  buffer %.4f\n",
		p.Overhead*100, p.EffectiveOverhead*100, p.CombinedBuffer)
	fmt.Println(cyan("══════════════════════════════════════════════════════════════"))

	fmt.Printf("%3s %16s %16s %9s %12s %16s %12s",
		"#", "Entry", "TakeProfit", "Disc%", "Funding", "Qty", "TP Gross")
	if cfg.GenerateStopLosses {
		fmt.Printf(" %16s %12s", "StopLoss", "SL Loss")
	}
	fmt.Println()

	for _, l := range p.Levels {
		fmt.Printf("%3d %16.8g %16s %9.2f %12.2f %16.8g %12s",
			l.Index, l.EntryPrice, green("%16.8g", l.TakeProfit), l.DiscountPct,
			l.Funding, l.FundQty, signed("%12.2f", l.TakeProfitGross))
		if cfg.GenerateStopLosses {
			fmt.Printf(" %16s %12s", red("%16.8g", l.StopLoss), signed("%12.2f", l.StopLossLoss))
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Printf(" cycle: cost %.2f  revenue %.2f  fees %.2f  profit %s  savings %.2f\n",
		r.Cycle.TotalCost, r.Cycle.TotalRevenue, r.Cycle.TotalFees,
		signed("%.2f", r.Cycle.GrossProfit), r.Cycle.SavingsAmount)

	if r.Chain != nil {
		fmt.Println()
		fmt.Printf("%5s %14s %14s %12s %14s\n", "Cycle", "Capital In", "Profit", "Savings", "Capital Out")
		for _, c := range r.Chain.Cycles {
			fmt.Printf("%5d %14.2f %14s %12.2f %14.2f\n",
				c.Index, c.CapitalIn, signed("%14.2f", c.Result.GrossProfit),
				c.Result.SavingsAmount, c.Result.NextCycleCapital)
		}
		fmt.Printf(" final capital %s  total savings %.2f\n",
			boldGreen("%.2f", r.Chain.FinalCapital), r.Chain.TotalSavings)
	}
}

func directionLabel(d domain.Direction) string {
	if d == domain.DirectionShort {
		return red("SHORT")
	}
	return green("LONG")
}
