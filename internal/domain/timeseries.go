package domain

// PricePoint is one observation of a symbol's price.
// Corresponds to price_series table in ClickHouse.
type PricePoint struct {
	Symbol    string  // market symbol, e.g. BTCUSDT
	Timestamp int64   // Unix timestamp in seconds
	Price     float64 // positive price
}
