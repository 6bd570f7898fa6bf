// Package overhead implements the fee-overhead, break-even and hedge buffer
// formulas that size every ladder level.
package overhead

// Params holds the inputs of the raw overhead formula.
type Params struct {
	Price                 float64 // position price
	Quantity              float64 // quantity basis
	FeeSpread             float64 // fee rate per side
	FeeHedgingCoefficient float64 // safety multiplier on fees
	DeltaTime             float64 // time scale
	SymbolCount           int     // symbols sharing fee exposure
	Capital               float64 // capital committed
	OffsetK               float64 // additive denominator offset
	FutureTradeCount      int     // future trades whose fees this one subsidizes
}

// Overhead returns the fractional price move needed to cover fees for one level.
// It grows with symbol count and future trades, and shrinks as capital grows
// relative to price per unit.
func Overhead(p Params) float64 {
	feeComponent := p.FeeSpread * p.FeeHedgingCoefficient * p.DeltaTime
	tradeScale := 1.0 + float64(max(0, p.FutureTradeCount))
	numerator := feeComponent * float64(p.SymbolCount) * tradeScale

	pricePerQty := 0.0
	if p.Quantity > 0 {
		pricePerQty = p.Price / p.Quantity
	}
	denominator := pricePerQty*p.Capital + p.OffsetK
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// EffectiveOverhead adds a surplus margin and a fee safety margin to oh.
func EffectiveOverhead(oh, surplusRate, feeSpread, feeHedgingCoefficient, deltaTime float64) float64 {
	return oh +
		surplusRate*feeHedgingCoefficient*deltaTime +
		feeSpread*feeHedgingCoefficient*deltaTime
}

// BreakEven is the price at which a fill at entryPrice covers its overhead.
func BreakEven(entryPrice, oh float64) float64 {
	return entryPrice * (1 + oh)
}

// PositionDelta is the notional weight of a position relative to capital.
func PositionDelta(price, qty, capital float64) float64 {
	if capital <= 0 {
		return 0
	}
	return price * qty / capital
}

// ChainFutureTradeCount is the number of cycles after current in a chain of total.
func ChainFutureTradeCount(total, current int) int {
	return max(0, total-1-current)
}
