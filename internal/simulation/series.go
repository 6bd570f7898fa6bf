package simulation

import (
	"errors"
	"fmt"

	"ladder-lab/internal/domain"
)

// ErrUnorderedSeries is returned when timestamps decrease within a series.
var ErrUnorderedSeries = errors.New("price series timestamps are not non-decreasing")

// ErrInvalidPrice is returned for a non-positive price point.
var ErrInvalidPrice = errors.New("price must be positive")

// ValidateSeries checks that points are in non-decreasing timestamp order and
// carry positive prices.
func ValidateSeries(points []*domain.PricePoint) error {
	for i, p := range points {
		if p.Price <= 0 {
			return fmt.Errorf("point %d at %d: %w", i, p.Timestamp, ErrInvalidPrice)
		}
		if i > 0 && p.Timestamp < points[i-1].Timestamp {
			return fmt.Errorf("point %d at %d after %d: %w", i, p.Timestamp, points[i-1].Timestamp, ErrUnorderedSeries)
		}
	}
	return nil
}

// toValues copies store points into the simulator's series.
func toValues(points []*domain.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, len(points))
	for i, p := range points {
		out[i] = *p
	}
	return out
}
