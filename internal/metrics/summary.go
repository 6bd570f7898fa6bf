package metrics

import (
	"sort"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/overhead"
)

// Summary condenses a simulator result into run-level statistics.
type Summary struct {
	Fills    int
	Wins     int
	Losses   int
	WinRate  float64
	StopLoss int // fills produced by stop-losses

	NetMean   float64
	NetMedian float64
	NetP10    float64
	NetP90    float64
	NetStddev float64
	Best      float64
	Worst     float64

	FinalWealth          float64 // liquid + deployed + savings
	ROI                  float64 // percent of starting capital
	MaxDrawdown          float64 // fraction of peak wealth
	MaxConsecutiveLosses int
}

// Summarize computes a Summary. A nil or empty result yields a zero Summary
// with FinalWealth equal to the starting capital.
func Summarize(res *domain.SimResult) Summary {
	if res == nil {
		return Summary{}
	}

	s := Summary{
		Fills:  len(res.Fills),
		Wins:   res.Wins,
		Losses: res.Losses,
		Best:   res.BestTrade,
		Worst:  res.WorstTrade,
	}
	s.WinRate = computeWinRate(s.Wins, s.Fills)

	if len(res.Snapshots) == 0 {
		s.FinalWealth = res.StartingCapital
		return s
	}

	nets := make([]float64, len(res.Fills))
	for i, f := range res.Fills {
		nets[i] = f.Net
		if f.IsStopLoss() {
			s.StopLoss++
		}
	}
	sorted := make([]float64, len(nets))
	copy(sorted, nets)
	sort.Float64s(sorted)

	s.NetMean = computeMean(nets)
	s.NetStddev = computeStddev(nets, s.NetMean)
	s.NetMedian = computePercentile(sorted, 0.50)
	s.NetP10 = computePercentile(sorted, 0.10)
	s.NetP90 = computePercentile(sorted, 0.90)

	s.FinalWealth = res.FinalCapital + res.Deployed + res.TotalSavings
	s.ROI = overhead.ROI(s.FinalWealth-res.StartingCapital, res.StartingCapital)

	curve := append([]float64{res.StartingCapital}, wealthCurve(res.Snapshots)...)
	s.MaxDrawdown = computeMaxDrawdown(curve)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(res.Fills)

	return s
}
