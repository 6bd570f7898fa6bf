package overhead

import (
	"math"

	"ladder-lab/internal/curve"
)

// MinBufferSteepness floors the buffer curve steepness for small positions.
const MinBufferSteepness = 0.1

// SigmoidBuffer returns a take-profit multiplier that pre-funds count future
// adverse events. It is exactly 1 when count or delta is not positive.
//
// delta is compressed into [0,1) and also sets the curve steepness, so larger
// positions get sharper transitions between lower and upper.
func SigmoidBuffer(delta, lower, upper float64, count int) float64 {
	if count <= 0 || delta <= 0 {
		return 1
	}
	t := curve.HyperbolicCompress(delta)
	steep := math.Max(delta, MinBufferSteepness)
	norm := curve.SigmoidNorm(t, steep)
	perCycle := curve.Lerp(lower, upper, norm)
	return 1 + float64(count)*perCycle
}

// BufferBounds returns the per-cycle bounds shared by both hedge buffers:
// lower is minRisk, upper is the larger of maxRisk and eo, never below lower.
func BufferBounds(eo, maxRisk, minRisk float64) (lower, upper float64) {
	lower = minRisk
	upper = math.Max(maxRisk, eo)
	if upper < lower {
		upper = lower
	}
	return lower, upper
}

// DowntrendBuffer pre-funds count adverse cycles.
func DowntrendBuffer(delta, eo, maxRisk, minRisk float64, count int) float64 {
	lower, upper := BufferBounds(eo, maxRisk, minRisk)
	return SigmoidBuffer(delta, lower, upper, count)
}

// StopLossBuffer pre-funds count stop-loss events. A partial stop-loss costs
// proportionally less, so both bounds scale by slFraction.
func StopLossBuffer(delta, eo, maxRisk, minRisk, slFraction float64, count int) float64 {
	lower, upper := BufferBounds(eo, maxRisk, minRisk)
	f := curve.Clamp01(slFraction)
	return SigmoidBuffer(delta, lower*f, upper*f, count)
}

// ClampStopLossFraction scales slFraction down so the worst-case stop-loss
// exposure across fundings never exceeds capital.
func ClampStopLossFraction(slFraction, eo float64, fundings []float64, capital float64) float64 {
	if slFraction <= 0 || capital <= 0 {
		return slFraction
	}
	exposure := 0.0
	for _, f := range fundings {
		exposure += eo * f
	}
	exposure *= slFraction
	if exposure <= 0 || exposure <= capital {
		return slFraction
	}
	return curve.Clamp01(slFraction * capital / exposure)
}
