// Package curve provides the sigmoid shaping and allocation primitives every
// ladder computation is built from. All functions are total: degenerate inputs
// produce degenerate but defined outputs.
package curve

import "math"

// Epsilon is the smallest positive value used to keep denominators and
// prices away from zero.
const Epsilon = 2.220446049250313e-16

// MinWeight floors allocation weights so no level is starved to exactly zero.
const MinWeight = 1e-12

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// FloorEps returns v, or Epsilon when v is smaller.
func FloorEps(v float64) float64 {
	return math.Max(v, Epsilon)
}

// Sigmoid is the logistic function 1/(1+e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// SigmoidRange returns the sigmoid evaluated at -steepness/2 and
// +steepness/2, and the span between them floored at Epsilon.
func SigmoidRange(steepness float64) (s0, s1, span float64) {
	s0 = Sigmoid(-steepness * 0.5)
	s1 = Sigmoid(steepness * 0.5)
	span = math.Max(s1-s0, Epsilon)
	return s0, s1, span
}

// SigmoidNorm maps t in [0,1] onto a sigmoid that spans exactly [0,1].
func SigmoidNorm(t, steepness float64) float64 {
	s0, _, span := SigmoidRange(steepness)
	return (Sigmoid(steepness*(t-0.5)) - s0) / span
}

// SigmoidNormAt evaluates SigmoidNorm at t = i/(n-1). A single level sits at t = 1.
func SigmoidNormAt(i, n int, steepness float64) float64 {
	t := 1.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	return SigmoidNorm(t, steepness)
}

// RiskWarp blends norm with its mirror. Risk 0 keeps the curve, 0.5 flattens
// it to a constant 0.5 and 1 mirrors it.
func RiskWarp(norm, risk float64) float64 {
	r := Clamp01(risk)
	return (1-r)*norm + r*(1-norm)
}

// RiskWeight is RiskWarp floored at MinWeight, used for capital allocation.
func RiskWeight(norm, risk float64) float64 {
	return math.Max(RiskWarp(norm, risk), MinWeight)
}

// NormWeights scales weights so they sum to 1. A non-positive total yields zeros.
func NormWeights(weights []float64) []float64 {
	out := make([]float64, len(weights))
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return out
	}
	for i, w := range weights {
		out[i] = w / total
	}
	return out
}

// Allocate distributes total across weights proportionally.
func Allocate(weights []float64, total float64) []float64 {
	out := NormWeights(weights)
	for i := range out {
		out[i] *= total
	}
	return out
}

// Lerp interpolates linearly between low and high.
func Lerp(low, high, t float64) float64 {
	return low + t*(high-low)
}

// HyperbolicCompress maps x >= 0 onto [0,1) via x/(x+1). Negative and zero input returns 0.
func HyperbolicCompress(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x / (x + 1)
}
