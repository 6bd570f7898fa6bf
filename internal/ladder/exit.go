package ladder

import (
	"math"

	"ladder-lab/internal/curve"
	"ladder-lab/internal/overhead"
)

// MinSellSteepness is the floor applied to the sell-schedule steepness.
const MinSellSteepness = 0.01

// TPParams are the inputs of one level's take-profit target.
type TPParams struct {
	EntryPrice        float64
	EffectiveOverhead float64
	MaxRisk           float64 // TP ceiling fraction; <= 0 disables the sigmoid ladder
	MinRisk           float64 // TP floor margin
	Risk              float64
	IsShort           bool
	Steepness         float64
	Index             int
	Levels            int
	ReferencePrice    float64 // highest entry of the set; entry price when <= 0
}

// LevelTP returns the sigmoid take-profit for one level, or 0 when MaxRisk is
// not positive.
//
// Long targets interpolate from entry*(1+eo+minRisk) up to ref*(1+maxRisk).
// Short targets mirror this downwards and never go below zero. Using the
// reference price for the ceiling keeps it constant across levels.
func LevelTP(p TPParams) float64 {
	if p.MaxRisk <= 0 {
		return 0
	}
	ref := p.ReferencePrice
	if ref <= 0 {
		ref = p.EntryPrice
	}
	steep := MinSteepness
	if p.Steepness > MinSteepness {
		steep = p.Steepness * 0.5
	}
	n := max(1, p.Levels)
	t := float64(p.Index+1) / float64(n+1)
	norm := curve.RiskWarp(curve.SigmoidNorm(t, steep), p.Risk)

	if !p.IsShort {
		minTP := p.EntryPrice * (1 + p.EffectiveOverhead + p.MinRisk)
		maxTP := ref * (1 + p.MaxRisk)
		if maxTP <= minTP {
			return minTP
		}
		return curve.Lerp(minTP, maxTP, norm)
	}

	maxTP := math.Max(0, p.EntryPrice*(1-p.EffectiveOverhead-p.MinRisk))
	floorTP := math.Max(0, ref*(1-p.MaxRisk))
	if floorTP >= maxTP {
		return maxTP
	}
	return curve.Lerp(maxTP, floorTP, norm)
}

// TakeProfit returns LevelTP, falling back to the multiplicative ladder
// entry*(1±eo*(i+1)) when the sigmoid ladder is disabled.
func TakeProfit(p TPParams) float64 {
	if tp := LevelTP(p); tp > 0 {
		return tp
	}
	step := p.EffectiveOverhead * float64(p.Index+1)
	if p.IsShort {
		return math.Max(0, p.EntryPrice*(1-step))
	}
	return p.EntryPrice * (1 + step)
}

// LevelSL is the stop-loss price, eo below entry for longs and above for shorts.
func LevelSL(entryPrice, eo float64, isShort bool) float64 {
	if isShort {
		return math.Max(0, entryPrice*(1+eo))
	}
	return math.Max(0, entryPrice*(1-eo))
}

// ApplyBuffer widens a take-profit by buffer when buffer > 1: up for longs,
// down for shorts.
func ApplyBuffer(tp, buffer float64, isShort bool) float64 {
	if buffer <= 1 {
		return tp
	}
	if isShort {
		return tp / buffer
	}
	return tp * buffer
}

// SellFractions returns the per-level share of the sellable quantity. The
// shares come from a cumulative sigmoid over level boundaries whose steepest
// point sits at risk*(n-1), and always sum to 1.
func SellFractions(n int, risk, steepness float64) []float64 {
	n = max(1, n)
	steep := steepness
	if steep <= 0 {
		steep = MinSellSteepness
	}
	center := curve.Clamp01(risk) * float64(n-1)

	cum := make([]float64, n+1)
	for i := range cum {
		cum[i] = curve.Sigmoid(steep * (float64(i) - 0.5 - center))
	}
	lo, hi := cum[0], cum[n]
	for i := range cum {
		if hi > lo {
			cum[i] = (cum[i] - lo) / (hi - lo)
		} else {
			cum[i] = float64(i) / float64(n)
		}
	}

	fractions := make([]float64, n)
	for i := range fractions {
		fractions[i] = cum[i+1] - cum[i]
	}
	return fractions
}

// ExitParams describes a holding and the exit ladder to build for it.
type ExitParams struct {
	EntryPrice        float64
	Quantity          float64
	BuyFee            float64
	EffectiveOverhead float64
	MaxRisk           float64
	MinRisk           float64
	Levels            int
	Risk              float64 // TP sizing and sell-schedule bias
	ExitFraction      float64 // share of Quantity to sell
	Steepness         float64
	IsShort           bool
	ReferencePrice    float64
	Buffer            float64 // TP multiplier, applied when > 1
}

// ExitLevel is one take-profit row of an exit ladder.
type ExitLevel struct {
	Index        int
	Price        float64
	SellFraction float64
	SellQty      float64
	SellValue    float64
	GrossProfit  float64
	BuyFeeShare  float64
	NetProfit    float64
	CumSold      float64
	CumNetProfit float64
}

// ExitLadder builds the take-profit ladder for a holding.
func ExitLadder(p ExitParams) []ExitLevel {
	n := max(1, p.Levels)
	sellable := p.Quantity * curve.Clamp01(p.ExitFraction)
	fractions := SellFractions(n, p.Risk, p.Steepness)

	levels := make([]ExitLevel, n)
	cumSold, cumNet := 0.0, 0.0
	for i := range levels {
		price := TakeProfit(TPParams{
			EntryPrice:        p.EntryPrice,
			EffectiveOverhead: p.EffectiveOverhead,
			MaxRisk:           p.MaxRisk,
			MinRisk:           p.MinRisk,
			Risk:              p.Risk,
			IsShort:           p.IsShort,
			Steepness:         p.Steepness,
			Index:             i,
			Levels:            n,
			ReferencePrice:    p.ReferencePrice,
		})
		price = ApplyBuffer(price, p.Buffer, p.IsShort)

		qty := sellable * fractions[i]
		gross := overhead.GrossProfit(p.EntryPrice, price, qty)
		if p.IsShort {
			gross = -gross
		}
		feeShare := p.BuyFee * fractions[i]
		net := gross - feeShare
		cumSold += qty
		cumNet += net

		levels[i] = ExitLevel{
			Index:        i,
			Price:        price,
			SellFraction: fractions[i],
			SellQty:      qty,
			SellValue:    price * qty,
			GrossProfit:  gross,
			BuyFeeShare:  feeShare,
			NetProfit:    net,
			CumSold:      cumSold,
			CumNetProfit: cumNet,
		}
	}
	return levels
}

// ProjectedGross sums the gross profit of an exit ladder.
func ProjectedGross(levels []ExitLevel) float64 {
	total := 0.0
	for _, l := range levels {
		total += l.GrossProfit
	}
	return total
}
