package domain

// SimRun is the persisted summary of one simulator run.
// Corresponds to sim_runs table in PostgreSQL.
type SimRun struct {
	RunID     string // deterministic hash of symbol, params and series span
	BatchID   string // sweep batch, empty for single runs
	Symbol    string
	CreatedAt int64 // Unix timestamp in seconds

	Params RunParams // parameters the run was executed with

	// Series span
	SeriesStart int64
	SeriesEnd   int64
	SeriesLen   int

	// Outcome
	StartingCapital float64
	FinalCapital    float64
	Deployed        float64
	RealizedProfit  float64
	TotalFees       float64
	HedgePool       float64
	FeeCoverage     float64
	PositionsOpened int
	PositionsClosed int
	Wins            int
	Losses          int
	Cycles          int
	TotalSavings    float64

	// Derived
	ROI         float64 // (final equity - start) / start, percent
	WinRate     float64 // wins / fills
	MaxDrawdown float64 // worst peak-to-trough equity, fraction of peak
}

// RunParams captures every input of a run that can change its result, other
// than the symbol, series and starting capital.
type RunParams struct {
	Levels        int     `json:"levels"`
	Steepness     float64 `json:"steepness"`
	EntryRisk     float64 `json:"entry_risk"`
	RangeAbove    float64 `json:"range_above"`
	RangeBelow    float64 `json:"range_below"`
	ExitLevels    int     `json:"exit_levels"`
	ExitRisk      float64 `json:"exit_risk"`
	ExitFraction  float64 `json:"exit_fraction"`
	ExitSteepness float64 `json:"exit_steepness"`
	SurplusRate   float64 `json:"surplus_rate"`
	MaxRisk       float64 `json:"max_risk"`
	MinRisk       float64 `json:"min_risk"`
	FeeSpread     float64 `json:"fee_spread"`
	BuyFeeRate    float64 `json:"buy_fee_rate"`
	SellFeeRate   float64 `json:"sell_fee_rate"`
	Downtrend     int     `json:"downtrend_count"`
	StopLosses    bool    `json:"stop_losses"`
	ChainCycles   bool    `json:"chain_cycles"`
	SavingsRate   float64 `json:"savings_rate"`

	Quantity              float64   `json:"quantity"`
	Direction             Direction `json:"direction"`
	FeeHedgingCoefficient float64   `json:"fee_hedging_coefficient"`
	DeltaTime             float64   `json:"delta_time"`
	SymbolCount           int       `json:"symbol_count"`
	OffsetK               float64   `json:"offset_k"`
	FutureTradeCount      int       `json:"future_trade_count"`
	GenerateStopLosses    bool      `json:"generate_stop_losses"`
	StopLossFraction      float64   `json:"stop_loss_fraction"`
	StopLossHedgeCount    int       `json:"stop_loss_hedge_count"`
	SkipStopLossClamp     bool      `json:"skip_stop_loss_clamp"`
	SkipFutureTradeHedge  bool      `json:"skip_future_trade_hedge"`
	MinEntryRatio         float64   `json:"min_entry_ratio"`
}

// ParamsOf extracts the result-affecting inputs of cfg.
func ParamsOf(cfg SimConfig) RunParams {
	return RunParams{
		Levels:        cfg.Entry.Levels,
		Steepness:     cfg.Entry.Steepness,
		EntryRisk:     cfg.Entry.Risk,
		RangeAbove:    cfg.Entry.RangeAbove,
		RangeBelow:    cfg.Entry.RangeBelow,
		ExitLevels:    cfg.ExitLevels,
		ExitRisk:      cfg.ExitRisk,
		ExitFraction:  cfg.ExitFraction,
		ExitSteepness: cfg.ExitSteepness,
		SurplusRate:   cfg.Entry.SurplusRate,
		MaxRisk:       cfg.Entry.MaxRisk,
		MinRisk:       cfg.Entry.MinRisk,
		FeeSpread:     cfg.Entry.FeeSpread,
		BuyFeeRate:    cfg.BuyFeeRate,
		SellFeeRate:   cfg.SellFeeRate,
		Downtrend:     cfg.Entry.DowntrendHedgeCount,
		StopLosses:    cfg.StopLosses,
		ChainCycles:   cfg.ChainCycles,
		SavingsRate:   cfg.SavingsRate,

		Quantity:              cfg.Entry.Quantity,
		Direction:             cfg.Entry.Direction,
		FeeHedgingCoefficient: cfg.Entry.FeeHedgingCoefficient,
		DeltaTime:             cfg.Entry.DeltaTime,
		SymbolCount:           cfg.Entry.SymbolCount,
		OffsetK:               cfg.Entry.OffsetK,
		FutureTradeCount:      cfg.Entry.FutureTradeCount,
		GenerateStopLosses:    cfg.Entry.GenerateStopLosses,
		StopLossFraction:      cfg.Entry.StopLossFraction,
		StopLossHedgeCount:    cfg.Entry.StopLossHedgeCount,
		SkipStopLossClamp:     cfg.Entry.SkipStopLossClamp,
		SkipFutureTradeHedge:  cfg.Entry.SkipFutureTradeHedge,
		MinEntryRatio:         cfg.MinEntryRatio,
	}
}

// ApplyTo returns cfg with its run inputs replaced by p. Symbol, prices and
// starting capital keep cfg's values.
func (p RunParams) ApplyTo(cfg SimConfig) SimConfig {
	cfg.Entry.Levels = p.Levels
	cfg.Entry.Steepness = p.Steepness
	cfg.Entry.Risk = p.EntryRisk
	cfg.Entry.RangeAbove = p.RangeAbove
	cfg.Entry.RangeBelow = p.RangeBelow
	cfg.ExitLevels = p.ExitLevels
	cfg.ExitRisk = p.ExitRisk
	cfg.ExitFraction = p.ExitFraction
	cfg.ExitSteepness = p.ExitSteepness
	cfg.Entry.SurplusRate = p.SurplusRate
	cfg.Entry.MaxRisk = p.MaxRisk
	cfg.Entry.MinRisk = p.MinRisk
	cfg.Entry.FeeSpread = p.FeeSpread
	cfg.BuyFeeRate = p.BuyFeeRate
	cfg.SellFeeRate = p.SellFeeRate
	cfg.Entry.DowntrendHedgeCount = p.Downtrend
	cfg.StopLosses = p.StopLosses
	cfg.ChainCycles = p.ChainCycles
	cfg.SavingsRate = p.SavingsRate
	cfg.Entry.Quantity = p.Quantity
	cfg.Entry.Direction = p.Direction
	cfg.Entry.FeeHedgingCoefficient = p.FeeHedgingCoefficient
	cfg.Entry.DeltaTime = p.DeltaTime
	cfg.Entry.SymbolCount = p.SymbolCount
	cfg.Entry.OffsetK = p.OffsetK
	cfg.Entry.FutureTradeCount = p.FutureTradeCount
	cfg.Entry.GenerateStopLosses = p.GenerateStopLosses
	cfg.Entry.StopLossFraction = p.StopLossFraction
	cfg.Entry.StopLossHedgeCount = p.StopLossHedgeCount
	cfg.Entry.SkipStopLossClamp = p.SkipStopLossClamp
	cfg.Entry.SkipFutureTradeHedge = p.SkipFutureTradeHedge
	cfg.MinEntryRatio = p.MinEntryRatio
	return cfg
}
