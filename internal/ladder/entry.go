// Package ladder generates the entry and exit ladders of a plan: sigmoid-spaced
// buy prices with a risk-warped capital allocation, take-profit and stop-loss
// targets, and the cumulative sell schedule.
package ladder

import (
	"math"

	"ladder-lab/internal/curve"
)

// MinSteepness is the floor applied to entry and take-profit curve steepness.
const MinSteepness = 0.1

// EntryParams describes the entry window and allocation posture.
type EntryParams struct {
	Levels         int
	Steepness      float64
	Risk           float64
	PriceLow       float64
	PriceHigh      float64
	AvailableFunds float64
}

// EntryLevel is one sigmoid-placed buy level.
type EntryLevel struct {
	Index    int
	Norm     float64 // position on the normalized curve
	Price    float64
	Weight   float64 // risk-warped allocation weight
	Fraction float64 // share of AvailableFunds
	Funding  float64
	Qty      float64
}

// PriceWindow returns the entry window around current. Without a range the
// window is [0, current].
func PriceWindow(current, above, below float64) (low, high float64) {
	if above > 0 || below > 0 {
		return curve.FloorEps(current - below), current + above
	}
	return 0, current
}

// EntryLadder places p.Levels buy prices on a sigmoid across the window and
// splits the funds by risk-warped weight. Fractions always sum to 1.
//
// Risk 0 puts most funding near the top of the window, risk 1 near the bottom.
func EntryLadder(p EntryParams) []EntryLevel {
	n := max(1, p.Levels)
	steep := math.Max(p.Steepness, MinSteepness)
	risk := curve.Clamp01(p.Risk)

	levels := make([]EntryLevel, n)
	weights := make([]float64, n)
	for i := range levels {
		norm := curve.SigmoidNormAt(i, n, steep)
		levels[i] = EntryLevel{
			Index:  i,
			Norm:   norm,
			Price:  curve.FloorEps(curve.Lerp(p.PriceLow, p.PriceHigh, norm)),
			Weight: curve.RiskWeight(norm, risk),
		}
		weights[i] = levels[i].Weight
	}

	fractions := curve.NormWeights(weights)
	for i := range levels {
		levels[i].Fraction = fractions[i]
		levels[i].Funding = p.AvailableFunds * fractions[i]
		levels[i].Qty = levels[i].Funding / levels[i].Price
	}
	return levels
}
