package overhead

import "ladder-lab/internal/curve"

// Discount is the percentage distance of entryPrice below referencePrice.
func Discount(referencePrice, entryPrice float64) float64 {
	if referencePrice <= 0 {
		return 0
	}
	return (referencePrice - entryPrice) / referencePrice * 100
}

// FundedQty is how much can be bought with funds at price.
func FundedQty(funds, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return funds / price
}

// GrossProfit of a long round trip.
func GrossProfit(entryPrice, exitPrice, qty float64) float64 {
	return (exitPrice - entryPrice) * qty
}

// NetProfit subtracts both fee legs from gross.
func NetProfit(gross, buyFee, sellFee float64) float64 {
	return gross - buyFee - sellFee
}

// ROI returns profit as a percentage of cost.
func ROI(profit, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return profit / cost * 100
}

// Savings is the share of profit diverted away from reinvestment. The rate is
// clamped to [0,1]; a negative profit yields a negative share.
func Savings(profit, rate float64) float64 {
	return profit * curve.Clamp01(rate)
}

// Reinvest is what remains of profit after savings.
func Reinvest(profit, rate float64) float64 {
	return profit - Savings(profit, rate)
}

// FeeHedgingCoverage is the ratio of the fee budget to the fees paid.
func FeeHedgingCoverage(hedgePool, totalFees float64) float64 {
	if totalFees <= 0 {
		return 0
	}
	return hedgePool / totalFees
}
