package lookup

import (
	"errors"
	"sort"

	"ladder-lab/internal/domain"
)

// ErrNoPriceData is returned when a series holds no points.
var ErrNoPriceData = errors.New("no price data available")

// PriceAt returns the price at or before target (Unix seconds).
// If every point is after target, the first price is returned.
// prices must be ascending by timestamp.
func PriceAt(target int64, prices []*domain.PricePoint) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrNoPriceData
	}

	// first index with Timestamp > target
	i := sort.Search(len(prices), func(i int) bool {
		return prices[i].Timestamp > target
	})
	if i == 0 {
		return prices[0].Price, nil
	}
	return prices[i-1].Price, nil
}

// Latest returns the last price of an ascending series.
func Latest(prices []*domain.PricePoint) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrNoPriceData
	}
	return prices[len(prices)-1].Price, nil
}

// Range returns the lowest and highest price in the series.
func Range(prices []*domain.PricePoint) (low, high float64, err error) {
	if len(prices) == 0 {
		return 0, 0, ErrNoPriceData
	}
	low, high = prices[0].Price, prices[0].Price
	for _, p := range prices[1:] {
		if p.Price < low {
			low = p.Price
		}
		if p.Price > high {
			high = p.Price
		}
	}
	return low, high, nil
}
