package simulation

import (
	"context"
	"sort"

	"ladder-lab/internal/curve"
	"ladder-lab/internal/domain"
	"ladder-lab/internal/ladder"
	"ladder-lab/internal/overhead"
	"ladder-lab/internal/plan"
)

const (
	// eps is the quantity below which a position or level counts as empty.
	eps = 1e-12

	// DefaultMinEntryRatio drops entry levels priced below 1% of the market.
	DefaultMinEntryRatio = 0.01

	// cancellation is checked every checkInterval timesteps
	checkInterval = 256
)

// NewConfig returns a SimConfig with the default entry, exit and fee settings.
func NewConfig(symbol string, capital float64, prices []domain.PricePoint) domain.SimConfig {
	return domain.SimConfig{
		StartingCapital: capital,
		Symbol:          symbol,
		Prices:          prices,
		Entry: domain.PlanConfig{
			Quantity:              1,
			Levels:                4,
			Steepness:             6,
			Risk:                  0.5,
			Direction:             domain.DirectionLong,
			FeeHedgingCoefficient: 1,
			DeltaTime:             1,
			SymbolCount:           1,
			StopLossFraction:      1,
			DowntrendHedgeCount:   1,
		},
		ExitRisk:      0.5,
		ExitFraction:  1,
		ExitSteepness: 4,
		MinEntryRatio: DefaultMinEntryRatio,
	}
}

// entryLevel is a pending buy order of the active cycle.
type entryLevel struct {
	price  float64
	qty    float64
	filled bool
}

// simulator holds the mutable state of one run.
type simulator struct {
	cfg domain.SimConfig
	res *domain.SimResult

	capital  float64
	realized float64
	savings  float64
	cycle    int
	nextID   int

	entries   []entryLevel
	positions []*domain.SimPosition
	cycleNet  map[int]float64
}

// Run walks the cfg.Symbol points of cfg.Prices in timestamp order and
// returns the result. An empty series yields a zero-valued result.
func Run(cfg domain.SimConfig) *domain.SimResult {
	res, _ := RunContext(context.Background(), cfg)
	return res
}

// RunContext is Run with cancellation checked between timesteps.
func RunContext(ctx context.Context, cfg domain.SimConfig) (*domain.SimResult, error) {
	prices := seriesFor(cfg.Prices, cfg.Symbol)
	if len(prices) == 0 {
		return &domain.SimResult{}, nil
	}
	if cfg.ExitLevels <= 0 {
		cfg.ExitLevels = max(1, cfg.Entry.Levels)
	}
	if cfg.MinEntryRatio <= 0 {
		cfg.MinEntryRatio = DefaultMinEntryRatio
	}

	s := &simulator{
		cfg:      cfg,
		res:      &domain.SimResult{StartingCapital: cfg.StartingCapital},
		capital:  cfg.StartingCapital,
		nextID:   1,
		cycleNet: make(map[int]float64),
	}
	s.entries = s.generateEntries(prices[0].Price)

	for i, pt := range prices {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s.step(pt)
	}
	s.finish()
	return s.res, nil
}

// seriesFor returns the points of symbol sorted by timestamp. Points without
// a symbol belong to every series, and an empty symbol selects all points.
func seriesFor(points []domain.PricePoint, symbol string) []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(points))
	for _, pt := range points {
		if symbol == "" || pt.Symbol == "" || pt.Symbol == symbol {
			out = append(out, pt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// step processes one price point: entries, exits, chain advance, snapshot.
// The order matters: a position opened in this step may exit in the same
// step, and a regenerated cycle sees post-exit capital.
func (s *simulator) step(pt domain.PricePoint) {
	s.checkEntries(pt)
	s.checkExits(pt)
	if s.cfg.ChainCycles {
		s.maybeAdvanceCycle(pt.Price)
	}
	s.snapshot(pt.Timestamp)
}

// generateEntries plans the entry ladder of a new cycle at price using the
// current capital.
func (s *simulator) generateEntries(price float64) []entryLevel {
	pcfg := s.cfg.Entry
	pcfg.CurrentPrice = price
	pcfg.AvailableFunds = s.capital
	if pcfg.Quantity <= 0 {
		pcfg.Quantity = 1
	}
	p := plan.GeneratePlan(pcfg)

	minEntry := price * s.cfg.MinEntryRatio
	levels := make([]entryLevel, 0, len(p.Levels))
	for _, l := range p.Levels {
		if l.EntryPrice < minEntry {
			continue
		}
		levels = append(levels, entryLevel{price: l.EntryPrice, qty: l.FundQty})
	}
	return levels
}

func (s *simulator) checkEntries(pt domain.PricePoint) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.filled || pt.Price > e.price || e.qty < eps {
			continue
		}
		cost := e.price * e.qty
		fee := cost * s.cfg.BuyFeeRate
		// funding is planned as capital/price, so cost can exceed capital by rounding
		if cost+fee > s.capital*(1+1e-12) {
			continue
		}

		s.capital -= cost + fee
		if s.capital < 0 {
			s.capital = 0
		}
		s.res.TotalBuyFees += fee
		e.filled = true

		pos := s.openPosition(pt, e.price, e.qty, fee)
		s.positions = append(s.positions, pos)
		s.res.Positions = append(s.res.Positions, pos)
		s.res.PositionsOpened++
	}
}

// openPosition creates a position and fixes its exit ladder.
func (s *simulator) openPosition(pt domain.PricePoint, price, qty, fee float64) *domain.SimPosition {
	cost := price * qty
	entry := s.cfg.Entry

	oh := overhead.Overhead(overhead.Params{
		Price:                 price,
		Quantity:              qty,
		FeeSpread:             entry.FeeSpread,
		FeeHedgingCoefficient: entry.FeeHedgingCoefficient,
		DeltaTime:             entry.DeltaTime,
		SymbolCount:           entry.SymbolCount,
		Capital:               cost,
		OffsetK:               entry.OffsetK,
		FutureTradeCount:      entry.FutureTradeCount,
	})
	eo := overhead.EffectiveOverhead(oh, entry.SurplusRate, entry.FeeSpread, entry.FeeHedgingCoefficient, entry.DeltaTime)

	delta := overhead.PositionDelta(price, qty, cost)
	slFraction := curve.Clamp01(entry.StopLossFraction)
	buffer := overhead.DowntrendBuffer(delta, eo, entry.MaxRisk, entry.MinRisk, entry.DowntrendHedgeCount) *
		overhead.StopLossBuffer(delta, eo, entry.MaxRisk, entry.MinRisk, slFraction, entry.StopLossHedgeCount)

	params := ladder.ExitParams{
		EntryPrice:        price,
		Quantity:          qty,
		BuyFee:            fee,
		EffectiveOverhead: eo,
		MaxRisk:           entry.MaxRisk,
		MinRisk:           entry.MinRisk,
		Levels:            s.cfg.ExitLevels,
		Risk:              s.cfg.ExitRisk,
		ExitFraction:      s.cfg.ExitFraction,
		Steepness:         s.cfg.ExitSteepness,
		ReferencePrice:    price,
		Buffer:            1,
	}
	exits := ladder.ExitLadder(params)
	// the buffer pre-funds adverse cycles, so only the unbuffered gross hedges fees
	s.res.HedgePool += ladder.ProjectedGross(exits)
	if buffer > 1 {
		params.Buffer = buffer
		exits = ladder.ExitLadder(params)
	}

	pos := &domain.SimPosition{
		ID:         s.nextID,
		Cycle:      s.cycle,
		Symbol:     s.cfg.Symbol,
		EntryPrice: price,
		Quantity:   qty,
		BuyFee:     fee,
		Remaining:  qty,
		EntryTime:  pt.Timestamp,
		Exits:      make([]domain.SimExitLevel, len(exits)),
	}
	s.nextID++
	for i, l := range exits {
		pos.Exits[i] = domain.SimExitLevel{
			Index:        l.Index,
			Price:        l.Price,
			SellFraction: l.SellFraction,
			SellQty:      l.SellQty,
		}
	}
	if s.cfg.StopLosses && slFraction > 0 {
		pos.StopLoss = ladder.LevelSL(price, eo, false)
		pos.StopLossQty = qty * slFraction
	}
	return pos
}

func (s *simulator) checkExits(pt domain.PricePoint) {
	for _, pos := range s.positions {
		if pos.IsClosed() {
			continue
		}

		if pos.StopLossQty > 0 && !pos.StopLossHit && pt.Price <= pos.StopLoss {
			pos.StopLossHit = true
			s.sell(pos, domain.StopLossExitIndex, pos.StopLoss, pos.StopLossQty, pt.Timestamp)
		}

		for i := range pos.Exits {
			if pos.IsClosed() {
				break
			}
			lvl := &pos.Exits[i]
			if lvl.Filled || lvl.SellQty < eps || pt.Price < lvl.Price {
				continue
			}
			lvl.Filled = true
			s.sell(pos, lvl.Index, lvl.Price, lvl.SellQty, pt.Timestamp)
		}
	}
}

// sell fills up to qty of pos at price. A residue below eps is sold with it
// so closed positions are exactly empty.
func (s *simulator) sell(pos *domain.SimPosition, exitIndex int, price, qty float64, ts int64) {
	q := min(qty, pos.Remaining)
	if pos.Remaining-q < eps {
		q = pos.Remaining
	}
	if q < eps {
		return
	}

	revenue := price * q
	sellFee := revenue * s.cfg.SellFeeRate
	feeShare := pos.BuyFee * q / pos.Quantity
	net := overhead.NetProfit(overhead.GrossProfit(pos.EntryPrice, price, q), feeShare, sellFee)

	pos.Remaining -= q
	if pos.Remaining <= 0 {
		pos.Remaining = 0
		pos.ClosedAt = ts
		s.res.PositionsClosed++
	}
	s.capital += revenue - sellFee
	s.realized += net
	s.cycleNet[pos.Cycle] += net
	s.res.TotalSellFees += sellFee

	fill := domain.SimFill{
		PositionID:  pos.ID,
		Cycle:       pos.Cycle,
		ExitIndex:   exitIndex,
		Timestamp:   ts,
		Price:       price,
		Quantity:    q,
		Revenue:     revenue,
		SellFee:     sellFee,
		BuyFeeShare: feeShare,
		Net:         net,
	}
	if len(s.res.Fills) == 0 {
		s.res.BestTrade, s.res.WorstTrade = net, net
	}
	s.res.BestTrade = max(s.res.BestTrade, net)
	s.res.WorstTrade = min(s.res.WorstTrade, net)
	if fill.IsWin() {
		s.res.Wins++
	} else {
		s.res.Losses++
	}
	s.res.Fills = append(s.res.Fills, fill)
}

// maybeAdvanceCycle starts a new cycle once every position of the current
// one has closed.
func (s *simulator) maybeAdvanceCycle(price float64) {
	hadPositions := false
	for _, pos := range s.positions {
		if pos.Cycle != s.cycle {
			continue
		}
		hadPositions = true
		if !pos.IsClosed() {
			return
		}
	}
	anyFilled := false
	for _, e := range s.entries {
		if e.filled {
			anyFilled = true
			break
		}
	}
	if !hadPositions || !anyFilled || s.capital <= eps {
		return
	}

	if profit := s.cycleNet[s.cycle]; profit > 0 && s.cfg.SavingsRate > 0 {
		saved := overhead.Savings(profit, s.cfg.SavingsRate)
		s.savings += saved
		s.capital -= saved
	}
	s.cycle++
	s.res.Cycles = s.cycle
	s.entries = s.generateEntries(price)
}

// deployed returns open positions at cost basis including their buy fee.
func (s *simulator) deployed() (float64, int) {
	total, open := 0.0, 0
	for _, pos := range s.positions {
		if pos.IsClosed() {
			continue
		}
		total += pos.Remaining * (pos.EntryPrice + pos.BuyFee/pos.Quantity)
		open++
	}
	return total, open
}

func (s *simulator) snapshot(ts int64) {
	deployed, open := s.deployed()
	s.res.Snapshots = append(s.res.Snapshots, domain.SimSnapshot{
		Timestamp:     ts,
		Capital:       s.capital,
		Deployed:      deployed,
		Realized:      s.realized,
		Fees:          s.res.TotalBuyFees + s.res.TotalSellFees,
		OpenPositions: open,
		Cycle:         s.cycle,
		Savings:       s.savings,
	})
}

func (s *simulator) finish() {
	r := s.res
	r.FinalCapital = s.capital
	r.Deployed, _ = s.deployed()
	r.RealizedProfit = s.realized
	r.TotalFees = r.TotalBuyFees + r.TotalSellFees
	r.FeeCoverage = overhead.FeeHedgingCoverage(r.HedgePool, r.TotalFees)
	r.TotalSavings = s.savings
}
