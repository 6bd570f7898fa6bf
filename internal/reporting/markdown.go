package reporting

import (
	"fmt"
	"strings"
	"time"

	"ladder-lab/internal/domain"
)

// RenderPlanMarkdown renders a plan report as Markdown string.
func RenderPlanMarkdown(r *PlanReport) string {
	var sb strings.Builder
	cfg := r.Config

	sb.WriteString(fmt.Sprintf("# Ladder Plan: %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Inputs\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Current Price | %s |\n", price(cfg.CurrentPrice)))
	sb.WriteString(fmt.Sprintf("| Direction | %s |\n", cfg.Direction))
	sb.WriteString(fmt.Sprintf("| Available Funds | %s |\n", money(cfg.AvailableFunds)))
	sb.WriteString(fmt.Sprintf("| Levels | %d |\n", cfg.Levels))
	sb.WriteString(fmt.Sprintf("| Steepness | %s |\n", ratio(cfg.Steepness)))
	sb.WriteString(fmt.Sprintf("| Risk | %s |\n", ratio(cfg.Risk)))
	sb.WriteString(fmt.Sprintf("| Overhead | %s |\n", ratio(r.Plan.Overhead)))
	sb.WriteString(fmt.Sprintf("| Effective Overhead | %s |\n", ratio(r.Plan.EffectiveOverhead)))
	sb.WriteString(fmt.Sprintf("| Combined Buffer | %s |\n", ratio(r.Plan.CombinedBuffer)))
	sb.WriteString("\n")

	sb.WriteString("## Levels\n\n")
	if len(r.Plan.Levels) > 0 {
		sb.WriteString("| # | Entry | BreakEven | Discount% | Funding | Qty | TakeProfit | TP Gross | StopLoss | SL Loss |\n")
		sb.WriteString("|---|-------|-----------|-----------|---------|-----|------------|----------|----------|---------|\n")
		for _, l := range r.Plan.Levels {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				l.Index, price(l.EntryPrice), price(l.BreakEven), pct(l.DiscountPct),
				money(l.Funding), price(l.FundQty), price(l.TakeProfit), money(l.TakeProfitGross),
				price(l.StopLoss), money(l.StopLossLoss)))
		}
		sb.WriteString(fmt.Sprintf("\nTotal funding: %s | Total TP gross: %s | Total SL loss: %s\n",
			money(r.Plan.TotalFunding), money(r.Plan.TotalTakeProfitGross), money(r.Plan.TotalStopLossLoss)))
	} else {
		sb.WriteString("No levels generated.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Cycle Projection\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Cost | %s |\n", money(r.Cycle.TotalCost)))
	sb.WriteString(fmt.Sprintf("| Total Revenue | %s |\n", money(r.Cycle.TotalRevenue)))
	sb.WriteString(fmt.Sprintf("| Total Fees | %s |\n", money(r.Cycle.TotalFees)))
	sb.WriteString(fmt.Sprintf("| Profit | %s |\n", money(r.Cycle.GrossProfit)))
	sb.WriteString(fmt.Sprintf("| Savings | %s |\n", money(r.Cycle.SavingsAmount)))
	sb.WriteString(fmt.Sprintf("| Next Cycle Capital | %s |\n", money(r.Cycle.NextCycleCapital)))
	sb.WriteString("\n")

	if r.Chain != nil {
		sb.WriteString("## Chain\n\n")
		sb.WriteString("| Cycle | Capital In | Profit | Savings | Capital Out |\n")
		sb.WriteString("|-------|------------|--------|---------|-------------|\n")
		for _, c := range r.Chain.Cycles {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				c.Index, money(c.CapitalIn), money(c.Result.GrossProfit),
				money(c.Result.SavingsAmount), money(c.Result.NextCycleCapital)))
		}
		sb.WriteString(fmt.Sprintf("\nTotal savings: %s | Final capital: %s\n\n",
			money(r.Chain.TotalSavings), money(r.Chain.FinalCapital)))
	}

	return sb.String()
}

// RenderRunMarkdown renders a run report as Markdown string.
func RenderRunMarkdown(r *RunReport) string {
	var sb strings.Builder
	run := r.Run
	s := r.Summary

	sb.WriteString(fmt.Sprintf("# Backtest: %s\n\n", run.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", run.RunID))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Series | %d points [%d, %d] |\n", run.SeriesLen, run.SeriesStart, run.SeriesEnd))
	sb.WriteString(fmt.Sprintf("| Starting Capital | %s |\n", money(run.StartingCapital)))
	sb.WriteString(fmt.Sprintf("| Final Capital | %s |\n", money(run.FinalCapital)))
	sb.WriteString(fmt.Sprintf("| Deployed | %s |\n", money(run.Deployed)))
	sb.WriteString(fmt.Sprintf("| Savings | %s |\n", money(run.TotalSavings)))
	sb.WriteString(fmt.Sprintf("| Realized Profit | %s |\n", money(run.RealizedProfit)))
	sb.WriteString(fmt.Sprintf("| ROI %% | %s |\n", pct(run.ROI)))
	sb.WriteString(fmt.Sprintf("| Total Fees | %s |\n", money(run.TotalFees)))
	sb.WriteString(fmt.Sprintf("| Hedge Pool | %s |\n", money(run.HedgePool)))
	sb.WriteString(fmt.Sprintf("| Fee Coverage | %s |\n", ratio(run.FeeCoverage)))
	sb.WriteString(fmt.Sprintf("| Positions | %d opened / %d closed |\n", run.PositionsOpened, run.PositionsClosed))
	sb.WriteString(fmt.Sprintf("| Cycles | %d |\n", run.Cycles))
	sb.WriteString(fmt.Sprintf("| Fills | %d (%d stop-loss) |\n", s.Fills, s.StopLoss))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s |\n", ratio(s.WinRate)))
	sb.WriteString(fmt.Sprintf("| Net Mean / Median | %s / %s |\n", money(s.NetMean), money(s.NetMedian)))
	sb.WriteString(fmt.Sprintf("| Best / Worst | %s / %s |\n", money(s.Best), money(s.Worst)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", ratio(s.MaxDrawdown)))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString("\n")

	sb.WriteString("## Fills\n\n")
	if len(r.Fills) > 0 {
		sb.WriteString("| Time | Position | Cycle | Exit | Price | Qty | Net |\n")
		sb.WriteString("|------|----------|-------|------|-------|-----|-----|\n")
		for _, f := range r.Fills {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %s | %s | %s | %s |\n",
				f.Timestamp, f.PositionID, f.Cycle, exitLabel(f), price(f.Price), price(f.Quantity), money(f.Net)))
		}
	} else {
		sb.WriteString("No fills.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderBatchMarkdown renders a batch report as Markdown string.
func RenderBatchMarkdown(r *BatchReport) string {
	var sb strings.Builder
	s := r.Summary

	sb.WriteString(fmt.Sprintf("# Sweep Batch %s\n\n", r.BatchID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Runs | %d |\n", s.Runs))
	sb.WriteString(fmt.Sprintf("| Profitable | %d |\n", s.Profitable))
	sb.WriteString(fmt.Sprintf("| ROI Mean %% | %s |\n", pct(s.ROIMean)))
	sb.WriteString(fmt.Sprintf("| ROI Median %% | %s |\n", pct(s.ROIMedian)))
	sb.WriteString(fmt.Sprintf("| ROI P10 / P90 %% | %s / %s |\n", pct(s.ROIP10), pct(s.ROIP90)))
	sb.WriteString(fmt.Sprintf("| ROI Stddev | %s |\n", pct(s.ROIStddev)))
	sb.WriteString(fmt.Sprintf("| Mean Win Rate | %s |\n", ratio(s.MeanWinRate)))
	sb.WriteString(fmt.Sprintf("| Worst Drawdown | %s |\n", ratio(s.WorstDrawdown)))
	sb.WriteString(fmt.Sprintf("| Total Fills | %d |\n", s.TotalFills))
	sb.WriteString(fmt.Sprintf("| Total Fees | %s |\n", money(s.TotalFees)))
	sb.WriteString("\n")

	sb.WriteString("## Runs\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString("| Run | Symbol | Levels | Risk | ExitRisk | Surplus | Chain | SL | Fills | WinRate | ROI% | MaxDD | Final |\n")
		sb.WriteString("|-----|--------|--------|------|----------|---------|-------|----|-------|---------|------|-------|-------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %t | %t | %d | %s | %s | %s | %s |\n",
				shortID(row.RunID), row.Symbol, row.Levels, ratio(row.EntryRisk), ratio(row.ExitRisk),
				ratio(row.SurplusRate), row.ChainCycles, row.StopLosses, row.Fills,
				ratio(row.WinRate), pct(row.ROI), ratio(row.MaxDrawdown), money(row.FinalCapital)))
		}
	} else {
		sb.WriteString("No runs.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func exitLabel(f domain.SimFill) string {
	if f.IsStopLoss() {
		return "SL"
	}
	return fmt.Sprintf("TP%d", f.ExitIndex)
}

// shortID keeps Markdown tables readable; CSV carries the full ID.
func shortID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
