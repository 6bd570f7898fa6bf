package plan

import (
	"context"
	"fmt"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/overhead"
)

// ComputeCycle projects the profit of p if every funded level fills and
// exits at its take-profit.
//
// Revenue is the value returned to capital on exit. For shorts it mirrors the
// price move around the funding.
func ComputeCycle(p domain.Plan, cfg domain.PlanConfig) domain.CycleResult {
	var r domain.CycleResult
	for _, e := range p.Levels {
		if e.Funding <= 0 {
			continue
		}
		revenue := e.TakeProfit * e.FundQty
		if cfg.IsShort() {
			revenue = e.Funding + (e.EntryPrice-e.TakeProfit)*e.FundQty
		}
		buyFee := e.Funding * cfg.FeeSpread
		sellFee := revenue * cfg.FeeSpread

		r.TotalCost += e.Funding
		r.TotalRevenue += revenue
		r.TotalFees += buyFee + sellFee
		r.Trades = append(r.Trades, domain.CycleTrade{
			Index:      e.Index,
			EntryPrice: e.EntryPrice,
			Quantity:   e.FundQty,
			Cost:       e.Funding,
			BuyFee:     buyFee,
			SellPrice:  e.TakeProfit,
			Revenue:    revenue,
			SellFee:    sellFee,
			Net:        revenue - e.Funding - buyFee - sellFee,
		})
	}

	r.GrossProfit = r.TotalRevenue - r.TotalCost - r.TotalFees
	r.SavingsAmount = overhead.Savings(r.GrossProfit, cfg.SavingsRate)
	r.ReinvestAmount = r.GrossProfit - r.SavingsAmount
	r.NextCycleCapital = cfg.AvailableFunds + r.ReinvestAmount
	return r
}

// GenerateChain runs cycles plans back to back. Each cycle starts with the
// previous cycle's NextCycleCapital and, unless SkipFutureTradeHedge is set,
// hedges the fees of the cycles still to come.
func GenerateChain(cfg domain.PlanConfig, cycles int) domain.ChainResult {
	cycles = max(1, cycles)

	var chain domain.ChainResult
	chain.InitialOverhead, chain.InitialEffectiveOverhead = Overheads(cfg)

	capital := cfg.AvailableFunds
	chain.Cycles = make([]domain.ChainCycle, 0, cycles)
	for ci := 0; ci < cycles; ci++ {
		ccfg := cfg
		ccfg.AvailableFunds = capital
		if !cfg.SkipFutureTradeHedge {
			ccfg.FutureTradeCount = overhead.ChainFutureTradeCount(cycles, ci)
		}

		p := GeneratePlan(ccfg)
		res := ComputeCycle(p, ccfg)
		chain.Cycles = append(chain.Cycles, domain.ChainCycle{
			Index:     ci,
			CapitalIn: capital,
			Plan:      p,
			Result:    res,
		})
		chain.TotalSavings += res.SavingsAmount
		capital = res.NextCycleCapital
	}
	chain.FinalCapital = capital
	return chain
}

// WalletReader provides the current liquid balance.
type WalletReader interface {
	Balance(ctx context.Context) (float64, error)
}

// FundingFromWallet returns the funds a plan can deploy: pump, plus the
// wallet balance when includeWallet is set.
func FundingFromWallet(ctx context.Context, w WalletReader, pump float64, includeWallet bool) (float64, error) {
	if !includeWallet || w == nil {
		return pump, nil
	}
	balance, err := w.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("read wallet balance: %w", err)
	}
	return pump + balance, nil
}
