package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"ladder-lab/internal/domain"
)

// LoadCSV parses `timestamp,price` rows. Rows that do not parse, including a
// header, are skipped and counted. A repeated timestamp keeps the last price.
// Points are returned in timestamp order.
func LoadCSV(r io.Reader, symbol string) ([]*domain.PricePoint, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	byTime := make(map[int64]float64)
	skipped := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read csv: %w", err)
		}
		if len(record) < 2 {
			skipped++
			continue
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil || price <= 0 {
			skipped++
			continue
		}
		byTime[ts] = price
	}

	points := make([]*domain.PricePoint, 0, len(byTime))
	for ts, price := range byTime {
		points = append(points, &domain.PricePoint{Symbol: symbol, Timestamp: ts, Price: price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	return points, skipped, nil
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path, symbol string) ([]*domain.PricePoint, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, symbol)
}
