// Package plan assembles entry ladders, exit targets and hedge buffers into
// complete per-cycle plans, projects their profit and chains them into
// compounding cycles.
package plan

import (
	"math"

	"ladder-lab/internal/curve"
	"ladder-lab/internal/domain"
	"ladder-lab/internal/ladder"
	"ladder-lab/internal/overhead"
)

// Overheads returns the raw and effective overhead of cfg.
func Overheads(cfg domain.PlanConfig) (oh, eo float64) {
	oh = overhead.Overhead(overhead.Params{
		Price:                 cfg.CurrentPrice,
		Quantity:              cfg.Quantity,
		FeeSpread:             cfg.FeeSpread,
		FeeHedgingCoefficient: cfg.FeeHedgingCoefficient,
		DeltaTime:             cfg.DeltaTime,
		SymbolCount:           cfg.SymbolCount,
		Capital:               cfg.AvailableFunds,
		OffsetK:               cfg.OffsetK,
		FutureTradeCount:      cfg.FutureTradeCount,
	})
	eo = overhead.EffectiveOverhead(oh, cfg.SurplusRate, cfg.FeeSpread, cfg.FeeHedgingCoefficient, cfg.DeltaTime)
	return oh, eo
}

// GeneratePlan builds the full ladder for one cycle.
func GeneratePlan(cfg domain.PlanConfig) domain.Plan {
	n := max(1, cfg.Levels)
	steep := math.Max(cfg.Steepness, ladder.MinSteepness)
	risk := curve.Clamp01(cfg.Risk)

	var p domain.Plan
	p.Overhead, p.EffectiveOverhead = Overheads(cfg)

	delta := overhead.PositionDelta(cfg.CurrentPrice, cfg.Quantity, cfg.AvailableFunds)
	p.StopLossFraction = curve.Clamp01(cfg.StopLossFraction)
	p.DowntrendBuffer = overhead.DowntrendBuffer(delta, p.EffectiveOverhead, cfg.MaxRisk, cfg.MinRisk, cfg.DowntrendHedgeCount)
	p.StopLossBuffer = overhead.StopLossBuffer(delta, p.EffectiveOverhead, cfg.MaxRisk, cfg.MinRisk, p.StopLossFraction, cfg.StopLossHedgeCount)
	p.CombinedBuffer = p.DowntrendBuffer * p.StopLossBuffer

	low, high := ladder.PriceWindow(cfg.CurrentPrice, cfg.RangeAbove, cfg.RangeBelow)
	entries := ladder.EntryLadder(ladder.EntryParams{
		Levels:         n,
		Steepness:      steep,
		Risk:           risk,
		PriceLow:       low,
		PriceHigh:      high,
		AvailableFunds: cfg.AvailableFunds,
	})

	if cfg.GenerateStopLosses && !cfg.SkipStopLossClamp {
		fundings := make([]float64, len(entries))
		for i, e := range entries {
			fundings[i] = e.Funding
		}
		p.StopLossFraction = overhead.ClampStopLossFraction(p.StopLossFraction, p.EffectiveOverhead, fundings, cfg.AvailableFunds)
	}

	ref := 0.0
	for _, e := range entries {
		ref = math.Max(ref, e.Price)
	}

	p.Levels = make([]domain.LevelEntry, n)
	for i, e := range entries {
		row := domain.LevelEntry{
			Index:        i,
			EntryPrice:   e.Price,
			BreakEven:    overhead.BreakEven(e.Price, p.Overhead),
			DiscountPct:  overhead.Discount(cfg.CurrentPrice, e.Price),
			Funding:      e.Funding,
			FundFraction: e.Fraction,
			FundQty:      e.Qty,
		}

		tp := ladder.TakeProfit(ladder.TPParams{
			EntryPrice:        e.Price,
			EffectiveOverhead: p.EffectiveOverhead,
			MaxRisk:           cfg.MaxRisk,
			MinRisk:           cfg.MinRisk,
			Risk:              risk,
			IsShort:           cfg.IsShort(),
			Steepness:         steep,
			Index:             i,
			Levels:            n,
			ReferencePrice:    ref,
		})
		row.TakeProfit = ladder.ApplyBuffer(tp, p.CombinedBuffer, cfg.IsShort())
		cost := e.Price * e.Qty
		row.TakeProfitTotal = row.TakeProfit * e.Qty
		row.TakeProfitGross = row.TakeProfitTotal - cost
		if cfg.IsShort() {
			row.TakeProfitGross = -row.TakeProfitGross
		}

		if cfg.GenerateStopLosses {
			row.StopLoss = ladder.LevelSL(e.Price, p.EffectiveOverhead, cfg.IsShort())
			row.StopLossQty = e.Qty * p.StopLossFraction
			row.StopLossTotal = row.StopLoss * row.StopLossQty
			row.StopLossLoss = row.StopLossTotal - e.Price*row.StopLossQty
			if cfg.IsShort() {
				row.StopLossLoss = -row.StopLossLoss
			}
			p.TotalStopLossLoss += math.Abs(row.StopLossLoss)
		}

		p.TotalFunding += row.Funding
		p.TotalTakeProfitGross += row.TakeProfitGross
		p.Levels[i] = row
	}
	return p
}
