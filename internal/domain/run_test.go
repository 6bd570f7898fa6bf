package domain

import "testing"

func TestRunParams_ApplyToRoundTrip(t *testing.T) {
	p := RunParams{
		Levels:        6,
		Steepness:     3,
		EntryRisk:     0.25,
		RangeAbove:    0.01,
		RangeBelow:    0.3,
		ExitLevels:    5,
		ExitRisk:      0.7,
		ExitFraction:  0.8,
		ExitSteepness: 2,
		SurplusRate:   0.03,
		MaxRisk:       0.1,
		MinRisk:       0.01,
		FeeSpread:     0.002,
		BuyFeeRate:    0.001,
		SellFeeRate:   0.0015,
		Downtrend:     2,
		StopLosses:    true,
		ChainCycles:   true,
		SavingsRate:   0.1,

		Quantity:              2,
		Direction:             DirectionShort,
		FeeHedgingCoefficient: 3,
		DeltaTime:             0.5,
		SymbolCount:           4,
		OffsetK:               0.2,
		FutureTradeCount:      3,
		GenerateStopLosses:    true,
		StopLossFraction:      0.4,
		StopLossHedgeCount:    1,
		SkipStopLossClamp:     true,
		SkipFutureTradeHedge:  true,
		MinEntryRatio:         0.05,
	}

	base := SimConfig{
		StartingCapital: 500,
		Symbol:          "BTCUSDT",
		Prices:          []PricePoint{{Symbol: "BTCUSDT", Timestamp: 1, Price: 10}},
		Entry:           PlanConfig{Quantity: 1, FeeHedgingCoefficient: 1, Direction: DirectionLong},
		MinEntryRatio:   0.01,
	}
	cfg := p.ApplyTo(base)

	if got := ParamsOf(cfg); got != p {
		t.Errorf("ParamsOf(ApplyTo(p)) = %+v, want %+v", got, p)
	}
	if cfg.StartingCapital != 500 || cfg.Symbol != "BTCUSDT" || len(cfg.Prices) != 1 {
		t.Errorf("ApplyTo overwrote inputs outside RunParams: %+v", cfg)
	}
}

func TestSimFill_IsStopLoss(t *testing.T) {
	if !(SimFill{ExitIndex: StopLossExitIndex}).IsStopLoss() {
		t.Error("stop-loss exit index not reported as stop-loss")
	}
	if (SimFill{ExitIndex: 0}).IsStopLoss() {
		t.Error("first take-profit reported as stop-loss")
	}
}
