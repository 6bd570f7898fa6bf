package reporting

import (
	"fmt"
	"strings"

	"ladder-lab/internal/domain"
)

// RenderRunsCSV renders batch rows as CSV string.
func RenderRunsCSV(rows []RunRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,symbol,levels,entry_risk,exit_levels,exit_risk,surplus_rate,chain_cycles,stop_losses,")
	sb.WriteString("positions_opened,fills,win_rate,roi_pct,max_drawdown,final_capital,total_fees,fee_coverage\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%d,%s,%s,%t,%t,%d,%d,%s,%s,%s,%s,%s,%s\n",
			r.RunID,
			r.Symbol,
			r.Levels,
			ratio(r.EntryRisk),
			r.ExitLevels,
			ratio(r.ExitRisk),
			ratio(r.SurplusRate),
			r.ChainCycles,
			r.StopLosses,
			r.PositionsOpened,
			r.Fills,
			ratio(r.WinRate),
			pct(r.ROI),
			ratio(r.MaxDrawdown),
			money(r.FinalCapital),
			money(r.TotalFees),
			ratio(r.FeeCoverage),
		))
	}

	return sb.String()
}

// RenderPlanCSV renders plan levels as CSV string.
func RenderPlanCSV(p domain.Plan) string {
	var sb strings.Builder

	sb.WriteString("index,entry_price,break_even,discount_pct,funding,fund_fraction,fund_qty,")
	sb.WriteString("take_profit,take_profit_gross,stop_loss,stop_loss_qty,stop_loss_loss\n")

	for _, l := range p.Levels {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			l.Index,
			price(l.EntryPrice),
			price(l.BreakEven),
			pct(l.DiscountPct),
			money(l.Funding),
			ratio(l.FundFraction),
			price(l.FundQty),
			price(l.TakeProfit),
			money(l.TakeProfitGross),
			price(l.StopLoss),
			price(l.StopLossQty),
			money(l.StopLossLoss),
		))
	}

	return sb.String()
}

// RenderFillsCSV renders simulator fills as CSV string.
func RenderFillsCSV(fills []domain.SimFill) string {
	var sb strings.Builder

	sb.WriteString("timestamp,position_id,cycle,exit_index,price,quantity,revenue,sell_fee,buy_fee_share,net\n")

	for _, f := range fills {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d,%s,%s,%s,%s,%s,%s\n",
			f.Timestamp,
			f.PositionID,
			f.Cycle,
			f.ExitIndex,
			price(f.Price),
			price(f.Quantity),
			money(f.Revenue),
			money(f.SellFee),
			money(f.BuyFeeShare),
			money(f.Net),
		))
	}

	return sb.String()
}
