package reporting

import "github.com/shopspring/decimal"

// money renders an amount with two fixed decimals, rounding half away from zero.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// price renders a per-unit price with up to eight decimals, trailing zeros trimmed.
func price(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}

// ratio renders a unitless value with four fixed decimals.
func ratio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// pct renders a percentage with two fixed decimals.
func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
