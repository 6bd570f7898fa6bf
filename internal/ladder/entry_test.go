package ladder

import (
	"math"
	"testing"

	"ladder-lab/internal/curve"
)

func sumFractions(levels []EntryLevel) float64 {
	sum := 0.0
	for _, l := range levels {
		sum += l.Fraction
	}
	return sum
}

func TestPriceWindow(t *testing.T) {
	low, high := PriceWindow(100, 0, 0)
	if low != 0 || high != 100 {
		t.Errorf("default window = [%v, %v], want [0, 100]", low, high)
	}
	low, high = PriceWindow(100, 10, 30)
	if low != 70 || high != 110 {
		t.Errorf("explicit window = [%v, %v], want [70, 110]", low, high)
	}
	low, _ = PriceWindow(100, 0, 500)
	if low != curve.Epsilon {
		t.Errorf("window below zero floored to %v, want %v", low, curve.Epsilon)
	}
}

func TestEntryLadder_FractionsSumToOne(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 20} {
		for _, risk := range []float64{0, 0.2, 0.5, 0.9, 1} {
			for _, steep := range []float64{0.5, 4, 12} {
				levels := EntryLadder(EntryParams{
					Levels: n, Steepness: steep, Risk: risk,
					PriceLow: 10, PriceHigh: 100, AvailableFunds: 1000,
				})
				if len(levels) != n {
					t.Fatalf("len = %d, want %d", len(levels), n)
				}
				if sum := sumFractions(levels); math.Abs(sum-1) > 1e-9 {
					t.Errorf("n=%d risk=%v steep=%v: fractions sum %v", n, risk, steep, sum)
				}
			}
		}
	}
}

func TestEntryLadder_SymmetricAtMidRisk(t *testing.T) {
	levels := EntryLadder(EntryParams{
		Levels: 4, Steepness: 6, Risk: 0.5,
		PriceLow: 0, PriceHigh: 100, AvailableFunds: 1000,
	})

	for i := 0; i < 2; i++ {
		mirror := levels[3-i]
		if got := levels[i].Price + mirror.Price; math.Abs(got-100) > 1e-9 {
			t.Errorf("levels %d and %d not symmetric about 50: %v + %v", i, 3-i, levels[i].Price, mirror.Price)
		}
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Price <= levels[i-1].Price {
			t.Errorf("prices not ascending: %v then %v", levels[i-1].Price, levels[i].Price)
		}
	}
	for _, l := range levels {
		if math.Abs(l.Fraction-0.25) > 1e-9 {
			t.Errorf("level %d fraction %v, want 0.25", l.Index, l.Fraction)
		}
	}
}

func TestEntryLadder_RiskShiftsFunding(t *testing.T) {
	params := EntryParams{Levels: 5, Steepness: 4, PriceLow: 50, PriceHigh: 100, AvailableFunds: 1000}

	params.Risk = 0
	conservative := EntryLadder(params)
	if conservative[4].Funding <= conservative[0].Funding {
		t.Errorf("risk 0: top funding %v should exceed bottom %v", conservative[4].Funding, conservative[0].Funding)
	}

	params.Risk = 1
	aggressive := EntryLadder(params)
	if aggressive[0].Funding <= aggressive[4].Funding {
		t.Errorf("risk 1: bottom funding %v should exceed top %v", aggressive[0].Funding, aggressive[4].Funding)
	}
}

func TestEntryLadder_Degenerate(t *testing.T) {
	levels := EntryLadder(EntryParams{Levels: 0, Steepness: -3, Risk: 4, PriceLow: 0, PriceHigh: 100, AvailableFunds: 500})
	if len(levels) != 1 {
		t.Fatalf("len = %d, want 1", len(levels))
	}
	l := levels[0]
	if l.Price != 100 || l.Fraction != 1 || l.Funding != 500 || l.Qty != 5 {
		t.Errorf("single level = %+v", l)
	}

	// the bottom of a [0, x] window is floored, never zero
	levels = EntryLadder(EntryParams{Levels: 3, Steepness: 6, PriceLow: 0, PriceHigh: 10, AvailableFunds: 1})
	if levels[0].Price <= 0 {
		t.Errorf("bottom price %v, want > 0", levels[0].Price)
	}
}
