// Package verification re-simulates stored runs and reports where the
// replay diverges from the stored summary.
package verification

import (
	"math"

	"ladder-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string
	Match       bool // true if all fields match
	Divergences []FieldDivergence
	StoredROI   float64
	ReplayedROI float64
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// CompareRuns compares two run summaries and returns divergences.
// CreatedAt is ignored. Floats are compared with FloatTolerance.
func CompareRuns(stored, replayed *domain.SimRun) []FieldDivergence {
	var d []FieldDivergence

	exact := func(field string, a, b any) {
		if a != b {
			d = append(d, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}
	approx := func(field string, a, b float64) {
		if !floatEquals(a, b) {
			d = append(d, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}

	exact("RunID", stored.RunID, replayed.RunID)
	exact("BatchID", stored.BatchID, replayed.BatchID)
	exact("Symbol", stored.Symbol, replayed.Symbol)
	exact("Params", stored.Params, replayed.Params)

	exact("SeriesStart", stored.SeriesStart, replayed.SeriesStart)
	exact("SeriesEnd", stored.SeriesEnd, replayed.SeriesEnd)
	exact("SeriesLen", stored.SeriesLen, replayed.SeriesLen)

	approx("StartingCapital", stored.StartingCapital, replayed.StartingCapital)
	approx("FinalCapital", stored.FinalCapital, replayed.FinalCapital)
	approx("Deployed", stored.Deployed, replayed.Deployed)
	approx("RealizedProfit", stored.RealizedProfit, replayed.RealizedProfit)
	approx("TotalFees", stored.TotalFees, replayed.TotalFees)
	approx("HedgePool", stored.HedgePool, replayed.HedgePool)
	approx("FeeCoverage", stored.FeeCoverage, replayed.FeeCoverage)
	approx("TotalSavings", stored.TotalSavings, replayed.TotalSavings)

	exact("PositionsOpened", stored.PositionsOpened, replayed.PositionsOpened)
	exact("PositionsClosed", stored.PositionsClosed, replayed.PositionsClosed)
	exact("Wins", stored.Wins, replayed.Wins)
	exact("Losses", stored.Losses, replayed.Losses)
	exact("Cycles", stored.Cycles, replayed.Cycles)

	approx("ROI", stored.ROI, replayed.ROI)
	approx("WinRate", stored.WinRate, replayed.WinRate)
	approx("MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown)

	return d
}

// floatEquals compares two floats with tolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
