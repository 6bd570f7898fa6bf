package domain

// SimConfig configures one simulator run.
type SimConfig struct {
	StartingCapital float64
	Symbol          string
	Prices          []PricePoint // walked in timestamp order

	// Entry is the plan template. CurrentPrice, AvailableFunds and Quantity
	// are overwritten each time a cycle's entries are generated.
	Entry PlanConfig

	// Exit ladder
	ExitLevels    int     // defaults to Entry.Levels
	ExitRisk      float64 // TP sizing and sell-schedule bias
	ExitFraction  float64 // share of a position the ladder sells
	ExitSteepness float64 // sell-schedule steepness

	BuyFeeRate  float64
	SellFeeRate float64

	ChainCycles bool    // regenerate entries after each fully closed cycle
	SavingsRate float64 // share of positive cycle profit withheld from capital

	MinEntryRatio float64 // entries priced below price*ratio are dropped
	StopLosses    bool    // sell at the stop-loss price when it is crossed
}

// SimExitLevel is one take-profit target of an open position.
type SimExitLevel struct {
	Index        int
	Price        float64
	SellFraction float64
	SellQty      float64
	Filled       bool
}

// SimPosition is a position opened by the simulator. Its exit ladder is fixed
// at open time.
type SimPosition struct {
	ID          int
	Cycle       int
	Symbol      string
	EntryPrice  float64
	Quantity    float64
	BuyFee      float64
	Remaining   float64
	EntryTime   int64 // Unix seconds
	Exits       []SimExitLevel
	StopLoss    float64 // 0 when stop-losses are off
	StopLossQty float64
	StopLossHit bool
	ClosedAt    int64 // 0 while open
}

// IsClosed reports whether the position has been fully sold.
func (p *SimPosition) IsClosed() bool {
	return p.Remaining <= 0
}

// StopLossExitIndex marks a fill produced by a stop-loss.
const StopLossExitIndex = -1

// SimFill is one closing sale.
type SimFill struct {
	PositionID  int
	Cycle       int
	ExitIndex   int // StopLossExitIndex for stop-loss fills
	Timestamp   int64
	Price       float64
	Quantity    float64
	Revenue     float64
	SellFee     float64
	BuyFeeShare float64 // buy fee attributed to the quantity sold
	Net         float64
}

// IsWin reports whether the fill made money after fees.
func (f SimFill) IsWin() bool {
	return f.Net >= 0
}

// IsStopLoss reports whether the fill was produced by a stop-loss.
func (f SimFill) IsStopLoss() bool {
	return f.ExitIndex == StopLossExitIndex
}

// SimSnapshot records simulator state after one timestep.
type SimSnapshot struct {
	Timestamp     int64
	Capital       float64
	Deployed      float64 // open positions at cost basis including buy fees
	Realized      float64
	Fees          float64
	OpenPositions int
	Cycle         int
	Savings       float64
}

// Equity is liquid plus deployed capital.
func (s SimSnapshot) Equity() float64 {
	return s.Capital + s.Deployed
}

// SimResult is the outcome of a simulator run.
type SimResult struct {
	StartingCapital float64
	FinalCapital    float64
	Deployed        float64
	RealizedProfit  float64
	TotalBuyFees    float64
	TotalSellFees   float64
	TotalFees       float64
	HedgePool       float64 // projected gross profit of every opened exit ladder, before buffers
	FeeCoverage     float64 // HedgePool / TotalFees

	PositionsOpened int
	PositionsClosed int
	Wins            int
	Losses          int
	BestTrade       float64
	WorstTrade      float64

	Positions []*SimPosition
	Fills     []SimFill
	Snapshots []SimSnapshot

	Cycles       int
	TotalSavings float64
}
