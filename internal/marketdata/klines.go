// Package marketdata acquires price series from Binance and CSV files.
package marketdata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"ladder-lab/internal/domain"
)

// KlineFetcher pages through historical klines and keeps each close price.
type KlineFetcher struct {
	client   *binance.Client
	interval string
	limit    int
	logger   *zap.Logger
}

// KlineOptions configures a KlineFetcher.
type KlineOptions struct {
	Interval string // e.g. 1m, 1h
	Limit    int    // klines per request, Binance caps it at 1000
	Logger   *zap.Logger
}

// NewKlineFetcher creates a fetcher. A nil client uses an anonymous public client.
func NewKlineFetcher(client *binance.Client, opts KlineOptions) *KlineFetcher {
	if client == nil {
		client = binance.NewClient("", "")
	}
	if opts.Interval == "" {
		opts.Interval = "1m"
	}
	if opts.Limit <= 0 || opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &KlineFetcher{
		client:   client,
		interval: opts.Interval,
		limit:    opts.Limit,
		logger:   opts.Logger.Named("klines"),
	}
}

// Fetch returns close prices for symbol with open times in [start, end]
// (Unix seconds). end = 0 fetches up to the latest kline; start = 0 starts
// from the most recent page.
func (f *KlineFetcher) Fetch(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	cursor := start * 1000
	for page := 0; ; page++ {
		svc := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(f.interval).
			Limit(f.limit)
		if cursor > 0 {
			svc = svc.StartTime(cursor)
		}
		if end > 0 {
			svc = svc.EndTime(end * 1000)
		}

		klines, err := svc.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s page %d: %w", symbol, page, err)
		}

		for _, k := range klines {
			closePrice, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				return nil, fmt.Errorf("parse close %q at %d: %w", k.Close, k.OpenTime, err)
			}
			if closePrice <= 0 {
				continue
			}
			points = append(points, &domain.PricePoint{
				Symbol:    symbol,
				Timestamp: k.OpenTime / 1000,
				Price:     closePrice,
			})
		}

		f.logger.Debug("kline page",
			zap.String("symbol", symbol),
			zap.Int("page", page),
			zap.Int("klines", len(klines)))

		if len(klines) < f.limit {
			break
		}
		last := klines[len(klines)-1]
		cursor = last.OpenTime + 1
		if end > 0 && cursor > end*1000 {
			break
		}
	}

	return points, nil
}
