package domain

// Direction of a ladder.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// PlanConfig holds the inputs of one ladder plan.
type PlanConfig struct {
	CurrentPrice   float64   // market price at planning time
	Quantity       float64   // quantity basis for the overhead formula
	Levels         int       // number of entry levels, >= 1
	Steepness      float64   // sigmoid steepness of the entry spacing
	Risk           float64   // allocation bias in [0,1]
	Direction      Direction // long or short
	AvailableFunds float64   // capital to distribute across levels
	RangeAbove     float64   // price window above current (0 = none)
	RangeBelow     float64   // price window below current (0 = none)

	// Overhead inputs
	FeeSpread             float64 // fee rate per side
	FeeHedgingCoefficient float64 // fee safety multiplier
	DeltaTime             float64 // time scale
	SymbolCount           int     // symbols sharing fee exposure
	OffsetK               float64 // additive denominator offset
	SurplusRate           float64 // profit margin on top of break-even
	FutureTradeCount      int     // future trades whose fees this plan covers

	// Take-profit bounds as fractions of price
	MaxRisk float64 // TP ceiling; 0 disables the sigmoid TP ladder
	MinRisk float64 // TP floor margin

	// Stop-loss and hedge buffers
	GenerateStopLosses  bool    // compute per-level stop-loss rows
	StopLossFraction    float64 // fraction of each level sold at stop-loss
	StopLossHedgeCount  int     // stop-loss events pre-funded in TP
	DowntrendHedgeCount int     // adverse cycles pre-funded in TP

	SavingsRate float64 // share of cycle profit kept out of reinvestment

	// Independent toggles for the two future-cost mechanisms.
	SkipStopLossClamp    bool // keep StopLossFraction even if exposure exceeds funds
	SkipFutureTradeHedge bool // chain cycles do not hedge later cycles' fees
}

// IsShort reports whether the plan is for a short ladder.
func (c PlanConfig) IsShort() bool {
	return c.Direction == DirectionShort
}

// LevelEntry is one row of a plan.
type LevelEntry struct {
	Index           int
	EntryPrice      float64
	BreakEven       float64
	DiscountPct     float64 // distance below current price, percent
	Funding         float64 // capital allocated
	FundFraction    float64 // share of total funding
	FundQty         float64 // quantity bought
	TakeProfit      float64 // per unit
	TakeProfitTotal float64 // TakeProfit * FundQty
	TakeProfitGross float64 // TakeProfitTotal - cost
	StopLoss        float64 // per unit
	StopLossQty     float64
	StopLossTotal   float64
	StopLossLoss    float64 // negative for long
}

// Plan is a complete entry/exit ladder for one cycle.
type Plan struct {
	Overhead             float64
	EffectiveOverhead    float64
	DowntrendBuffer      float64
	StopLossBuffer       float64
	CombinedBuffer       float64
	StopLossFraction     float64 // after the capital clamp
	Levels               []LevelEntry
	TotalFunding         float64
	TotalTakeProfitGross float64
	TotalStopLossLoss    float64 // sum of |StopLossLoss|
}

// CycleTrade is the projected round trip of one funded level.
type CycleTrade struct {
	Index      int
	EntryPrice float64
	Quantity   float64
	Cost       float64
	BuyFee     float64
	SellPrice  float64
	Revenue    float64
	SellFee    float64
	Net        float64
}

// CycleResult is the profit realized if every level of a plan fills and exits.
type CycleResult struct {
	TotalCost        float64
	TotalRevenue     float64
	TotalFees        float64
	GrossProfit      float64
	SavingsAmount    float64
	ReinvestAmount   float64
	NextCycleCapital float64
	Trades           []CycleTrade
}

// ChainCycle is one link of a compounding chain.
type ChainCycle struct {
	Index     int
	CapitalIn float64
	Plan      Plan
	Result    CycleResult
}

// ChainResult holds every cycle of a chain.
type ChainResult struct {
	Cycles                   []ChainCycle
	InitialOverhead          float64
	InitialEffectiveOverhead float64
	TotalSavings             float64
	FinalCapital             float64
}
