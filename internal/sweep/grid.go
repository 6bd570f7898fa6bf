package sweep

import "ladder-lab/internal/domain"

// Grid lists the values tried per parameter. An empty axis keeps the base
// config's value.
type Grid struct {
	Levels      []int     `yaml:"levels"`
	Steepness   []float64 `yaml:"steepness"`
	EntryRisk   []float64 `yaml:"entry_risk"`
	ExitRisk    []float64 `yaml:"exit_risk"`
	SurplusRate []float64 `yaml:"surplus_rate"`
	ChainCycles []bool    `yaml:"chain_cycles"`
	StopLosses  []bool    `yaml:"stop_losses"`
}

// Size is the number of cells the grid expands to.
func (g Grid) Size() int {
	n := 1
	for _, l := range []int{
		len(g.Levels), len(g.Steepness), len(g.EntryRisk), len(g.ExitRisk),
		len(g.SurplusRate), len(g.ChainCycles), len(g.StopLosses),
	} {
		if l > 0 {
			n *= l
		}
	}
	return n
}

// Cells expands the grid over base. The last axis varies fastest, so the
// order is deterministic for a given grid.
func (g Grid) Cells(base domain.SimConfig) []domain.SimConfig {
	cells := []domain.SimConfig{base}

	cells = expand(cells, g.Levels, func(c *domain.SimConfig, v int) { c.Entry.Levels = v })
	cells = expand(cells, g.Steepness, func(c *domain.SimConfig, v float64) { c.Entry.Steepness = v })
	cells = expand(cells, g.EntryRisk, func(c *domain.SimConfig, v float64) { c.Entry.Risk = v })
	cells = expand(cells, g.ExitRisk, func(c *domain.SimConfig, v float64) { c.ExitRisk = v })
	cells = expand(cells, g.SurplusRate, func(c *domain.SimConfig, v float64) { c.Entry.SurplusRate = v })
	cells = expand(cells, g.ChainCycles, func(c *domain.SimConfig, v bool) { c.ChainCycles = v })
	cells = expand(cells, g.StopLosses, func(c *domain.SimConfig, v bool) { c.StopLosses = v })

	return cells
}

func expand[T any](cells []domain.SimConfig, values []T, set func(*domain.SimConfig, T)) []domain.SimConfig {
	if len(values) == 0 {
		return cells
	}
	out := make([]domain.SimConfig, 0, len(cells)*len(values))
	for _, c := range cells {
		for _, v := range values {
			next := c
			set(&next, v)
			out = append(out, next)
		}
	}
	return out
}
