package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"ladder-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id.
// Formula: SHA256(batch_id|symbol|series_start|series_end|series_len|starting_capital|params)
// Returns the base58-encoded hash.
func ComputeRunID(
	batchID string,
	symbol string,
	seriesStart int64,
	seriesEnd int64,
	seriesLen int,
	startingCapital float64,
	params domain.RunParams,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d|%s|%s",
		batchID,
		symbol,
		seriesStart,
		seriesEnd,
		seriesLen,
		formatFloat(startingCapital),
		paramsKey(params),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// paramsKey renders params in a fixed field order. New fields are appended
// so existing keys keep their prefix.
func paramsKey(p domain.RunParams) string {
	fields := []string{
		strconv.Itoa(p.Levels),
		formatFloat(p.Steepness),
		formatFloat(p.EntryRisk),
		formatFloat(p.RangeAbove),
		formatFloat(p.RangeBelow),
		strconv.Itoa(p.ExitLevels),
		formatFloat(p.ExitRisk),
		formatFloat(p.ExitFraction),
		formatFloat(p.ExitSteepness),
		formatFloat(p.SurplusRate),
		formatFloat(p.MaxRisk),
		formatFloat(p.MinRisk),
		formatFloat(p.FeeSpread),
		formatFloat(p.BuyFeeRate),
		formatFloat(p.SellFeeRate),
		strconv.Itoa(p.Downtrend),
		strconv.FormatBool(p.StopLosses),
		strconv.FormatBool(p.ChainCycles),
		formatFloat(p.SavingsRate),
		formatFloat(p.Quantity),
		string(p.Direction),
		formatFloat(p.FeeHedgingCoefficient),
		formatFloat(p.DeltaTime),
		strconv.Itoa(p.SymbolCount),
		formatFloat(p.OffsetK),
		strconv.Itoa(p.FutureTradeCount),
		strconv.FormatBool(p.GenerateStopLosses),
		formatFloat(p.StopLossFraction),
		strconv.Itoa(p.StopLossHedgeCount),
		strconv.FormatBool(p.SkipStopLossClamp),
		strconv.FormatBool(p.SkipFutureTradeHedge),
		formatFloat(p.MinEntryRatio),
	}
	return strings.Join(fields, "|")
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Decode returns the raw 32-byte hash behind a run ID.
func Decode(runID string) ([]byte, error) {
	raw, err := base58.Decode(runID)
	if err != nil {
		return nil, fmt.Errorf("decode run id: %w", err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("decode run id: want %d bytes, got %d", sha256.Size, len(raw))
	}
	return raw, nil
}
