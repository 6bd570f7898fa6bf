package plan

import (
	"context"
	"errors"
	"math"
	"testing"

	"ladder-lab/internal/domain"
)

func defaultConfig() domain.PlanConfig {
	return domain.PlanConfig{
		CurrentPrice:          100,
		Quantity:              1,
		Levels:                4,
		Steepness:             6,
		Risk:                  0.5,
		Direction:             domain.DirectionLong,
		AvailableFunds:        1000,
		FeeSpread:             0.001,
		FeeHedgingCoefficient: 1,
		DeltaTime:             1,
		SymbolCount:           1,
		SurplusRate:           0.02,
		MaxRisk:               0.1,
		MinRisk:               0.005,
		StopLossFraction:      1,
		DowntrendHedgeCount:   1,
		SavingsRate:           0.1,
	}
}

func TestGeneratePlan_Allocation(t *testing.T) {
	p := GeneratePlan(defaultConfig())
	if len(p.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(p.Levels))
	}
	sum := 0.0
	for _, l := range p.Levels {
		sum += l.FundFraction
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("fractions sum %v, want 1", sum)
	}
	if math.Abs(p.TotalFunding-1000) > 1e-9 {
		t.Errorf("total funding %v, want 1000", p.TotalFunding)
	}
}

func TestGeneratePlan_Overheads(t *testing.T) {
	cfg := defaultConfig()
	p := GeneratePlan(cfg)
	wantOH := 0.001 / (100 * 1000)
	if math.Abs(p.Overhead-wantOH) > 1e-15 {
		t.Errorf("overhead %v, want %v", p.Overhead, wantOH)
	}
	wantEO := p.Overhead + 0.02 + 0.001
	if p.EffectiveOverhead != wantEO {
		t.Errorf("effective overhead %v, want %v", p.EffectiveOverhead, wantEO)
	}
	for _, l := range p.Levels {
		if math.Abs(l.BreakEven-l.EntryPrice*(1+p.Overhead)) > 1e-12 {
			t.Errorf("level %d break-even %v", l.Index, l.BreakEven)
		}
	}
}

func TestGeneratePlan_BufferInflatesTakeProfit(t *testing.T) {
	cfg := defaultConfig()
	cfg.DowntrendHedgeCount = 0
	plain := GeneratePlan(cfg)
	if plain.CombinedBuffer != 1 {
		t.Fatalf("combined buffer without hedges = %v, want 1", plain.CombinedBuffer)
	}

	cfg.DowntrendHedgeCount = 2
	buffered := GeneratePlan(cfg)
	if buffered.CombinedBuffer <= 1 {
		t.Fatalf("combined buffer = %v, want > 1", buffered.CombinedBuffer)
	}
	for i := range plain.Levels {
		want := plain.Levels[i].TakeProfit * buffered.CombinedBuffer
		if math.Abs(buffered.Levels[i].TakeProfit-want) > 1e-9 {
			t.Errorf("level %d tp %v, want %v", i, buffered.Levels[i].TakeProfit, want)
		}
	}
}

func TestGeneratePlan_TakeProfitAboveBreakEven(t *testing.T) {
	p := GeneratePlan(defaultConfig())
	for _, l := range p.Levels {
		if l.TakeProfit <= l.BreakEven {
			t.Errorf("level %d tp %v not above break-even %v", l.Index, l.TakeProfit, l.BreakEven)
		}
		if l.TakeProfitGross <= 0 {
			t.Errorf("level %d tp gross %v, want > 0", l.Index, l.TakeProfitGross)
		}
	}
}

func TestGeneratePlan_FallbackTakeProfit(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRisk = 0
	cfg.DowntrendHedgeCount = 0
	p := GeneratePlan(cfg)
	for i, l := range p.Levels {
		want := l.EntryPrice * (1 + p.EffectiveOverhead*float64(i+1))
		if math.Abs(l.TakeProfit-want) > 1e-9 {
			t.Errorf("level %d tp %v, want %v", i, l.TakeProfit, want)
		}
	}
}

func TestGeneratePlan_StopLossClamp(t *testing.T) {
	cfg := defaultConfig()
	cfg.GenerateStopLosses = true
	cfg.SurplusRate = 0.5
	cfg.AvailableFunds = 100

	p := GeneratePlan(cfg)
	// exposure = eo * 100 * 1 with eo > 0.5 stays within capital
	if p.StopLossFraction != 1 {
		t.Fatalf("slFraction %v, want 1", p.StopLossFraction)
	}

	cfg.SurplusRate = 2
	p = GeneratePlan(cfg)
	want := 1 / p.EffectiveOverhead
	if math.Abs(p.StopLossFraction-want) > 1e-9 {
		t.Errorf("clamped slFraction %v, want %v", p.StopLossFraction, want)
	}

	cfg.SkipStopLossClamp = true
	p = GeneratePlan(cfg)
	if p.StopLossFraction != 1 {
		t.Errorf("slFraction with clamp skipped %v, want 1", p.StopLossFraction)
	}
}

func TestGeneratePlan_StopLossRows(t *testing.T) {
	cfg := defaultConfig()
	cfg.GenerateStopLosses = true
	cfg.StopLossFraction = 0.5
	p := GeneratePlan(cfg)

	total := 0.0
	for _, l := range p.Levels {
		if l.StopLoss >= l.EntryPrice {
			t.Errorf("level %d stop-loss %v not below entry %v", l.Index, l.StopLoss, l.EntryPrice)
		}
		if math.Abs(l.StopLossQty-l.FundQty*0.5) > 1e-12 {
			t.Errorf("level %d sl qty %v", l.Index, l.StopLossQty)
		}
		if l.StopLossLoss > 0 {
			t.Errorf("level %d sl loss %v, want <= 0", l.Index, l.StopLossLoss)
		}
		total += math.Abs(l.StopLossLoss)
	}
	if math.Abs(total-p.TotalStopLossLoss) > 1e-9 {
		t.Errorf("total sl loss %v, want %v", p.TotalStopLossLoss, total)
	}

	cfg.GenerateStopLosses = false
	p = GeneratePlan(cfg)
	if p.Levels[0].StopLoss != 0 || p.TotalStopLossLoss != 0 {
		t.Errorf("stop-loss rows present when disabled: %+v", p.Levels[0])
	}
}

func TestGeneratePlan_Short(t *testing.T) {
	cfg := defaultConfig()
	cfg.Direction = domain.DirectionShort
	cfg.DowntrendHedgeCount = 0
	cfg.RangeAbove = 20
	p := GeneratePlan(cfg)
	for _, l := range p.Levels {
		if l.TakeProfit >= l.EntryPrice {
			t.Errorf("short level %d tp %v not below entry %v", l.Index, l.TakeProfit, l.EntryPrice)
		}
		if l.TakeProfitGross <= 0 {
			t.Errorf("short level %d gross %v, want > 0", l.Index, l.TakeProfitGross)
		}
	}
}

func TestGeneratePlan_Degenerate(t *testing.T) {
	p := GeneratePlan(domain.PlanConfig{CurrentPrice: 50, Levels: -2, Steepness: 0, Risk: 9, AvailableFunds: 10})
	if len(p.Levels) != 1 {
		t.Fatalf("levels = %d, want 1", len(p.Levels))
	}
	if p.Levels[0].FundFraction != 1 {
		t.Errorf("fraction %v, want 1", p.Levels[0].FundFraction)
	}
	if p.CombinedBuffer != 1 {
		t.Errorf("buffer %v, want 1", p.CombinedBuffer)
	}
}

func TestComputeCycle(t *testing.T) {
	cfg := defaultConfig()
	p := GeneratePlan(cfg)
	r := ComputeCycle(p, cfg)

	if len(r.Trades) != 4 {
		t.Fatalf("trades = %d, want 4", len(r.Trades))
	}
	if math.Abs(r.TotalCost-1000) > 1e-9 {
		t.Errorf("total cost %v", r.TotalCost)
	}
	net := 0.0
	for _, tr := range r.Trades {
		net += tr.Net
		if math.Abs(tr.BuyFee-tr.Cost*0.001) > 1e-12 {
			t.Errorf("trade %d buy fee %v", tr.Index, tr.BuyFee)
		}
	}
	if math.Abs(net-r.GrossProfit) > 1e-9 {
		t.Errorf("sum of nets %v, want gross %v", net, r.GrossProfit)
	}
	if math.Abs(r.SavingsAmount-r.GrossProfit*0.1) > 1e-12 {
		t.Errorf("savings %v", r.SavingsAmount)
	}
	if math.Abs(r.NextCycleCapital-(1000+r.ReinvestAmount)) > 1e-9 {
		t.Errorf("next capital %v", r.NextCycleCapital)
	}
	if r.GrossProfit <= 0 {
		t.Errorf("gross profit %v, want > 0", r.GrossProfit)
	}
}

func TestComputeCycle_SkipsUnfunded(t *testing.T) {
	cfg := defaultConfig()
	cfg.AvailableFunds = 0
	p := GeneratePlan(cfg)
	r := ComputeCycle(p, cfg)
	if len(r.Trades) != 0 || r.NextCycleCapital != 0 {
		t.Errorf("unfunded cycle = %+v", r)
	}
}

func TestGenerateChain_CapitalFlowsForward(t *testing.T) {
	cfg := defaultConfig()
	chain := GenerateChain(cfg, 5)
	if len(chain.Cycles) != 5 {
		t.Fatalf("cycles = %d, want 5", len(chain.Cycles))
	}
	if chain.Cycles[0].CapitalIn != cfg.AvailableFunds {
		t.Errorf("first capital %v", chain.Cycles[0].CapitalIn)
	}
	for k := 0; k+1 < len(chain.Cycles); k++ {
		if chain.Cycles[k+1].CapitalIn != chain.Cycles[k].Result.NextCycleCapital {
			t.Errorf("cycle %d capital %v != previous next %v", k+1, chain.Cycles[k+1].CapitalIn, chain.Cycles[k].Result.NextCycleCapital)
		}
	}
	last := chain.Cycles[len(chain.Cycles)-1]
	if chain.FinalCapital != last.Result.NextCycleCapital {
		t.Errorf("final capital %v", chain.FinalCapital)
	}

	first := GeneratePlan(cfg)
	if chain.InitialOverhead != first.Overhead || chain.InitialEffectiveOverhead != first.EffectiveOverhead {
		t.Errorf("initial overheads (%v, %v)", chain.InitialOverhead, chain.InitialEffectiveOverhead)
	}
}

func TestGenerateChain_FutureTradeHedge(t *testing.T) {
	cfg := defaultConfig()
	cfg.DowntrendHedgeCount = 0
	hedged := GenerateChain(cfg, 3)

	// earlier cycles hedge more future fees, so carry more overhead per capital
	c0 := hedged.Cycles[0].Plan.Overhead * hedged.Cycles[0].CapitalIn
	c2 := hedged.Cycles[2].Plan.Overhead * hedged.Cycles[2].CapitalIn
	if math.Abs(c0-3*c2) > 1e-12 {
		t.Errorf("cycle 0 scaled overhead %v, want 3x cycle 2 %v", c0, c2)
	}

	cfg.SkipFutureTradeHedge = true
	plain := GenerateChain(cfg, 3)
	p0 := plain.Cycles[0].Plan.Overhead * plain.Cycles[0].CapitalIn
	if math.Abs(p0-c2) > 1e-12 {
		t.Errorf("unhedged cycle 0 scaled overhead %v, want %v", p0, c2)
	}
}

func TestGenerateChain_AtLeastOneCycle(t *testing.T) {
	chain := GenerateChain(defaultConfig(), 0)
	if len(chain.Cycles) != 1 {
		t.Errorf("cycles = %d, want 1", len(chain.Cycles))
	}
}

type stubWallet struct {
	balance float64
	err     error
}

func (w stubWallet) Balance(context.Context) (float64, error) {
	return w.balance, w.err
}

func TestFundingFromWallet(t *testing.T) {
	ctx := context.Background()

	got, err := FundingFromWallet(ctx, stubWallet{balance: 250}, 100, true)
	if err != nil || got != 350 {
		t.Errorf("with wallet = (%v, %v), want 350", got, err)
	}

	got, err = FundingFromWallet(ctx, stubWallet{balance: 250}, 100, false)
	if err != nil || got != 100 {
		t.Errorf("without wallet = (%v, %v), want 100", got, err)
	}

	boom := errors.New("boom")
	_, err = FundingFromWallet(ctx, stubWallet{err: boom}, 100, true)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}
