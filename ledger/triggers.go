package ledger

import (
	"slices"

	"github.com/rustyeddy/traderagent/internal/logger"
)

const (
	ReasonStopLoss   = "[STOP LOSS]"
	ReasonTakeProfit = "[TAKE PROFIT]"
)

// Trigger records a position the risk scan closed.
type Trigger struct {
	Instrument string
	Side       Side
	Reason     string
	Price      float64
	Amount     float64
	RealizedPL float64
}

// levelSet reports whether a stop-loss or take-profit is in force. Stored
// records may carry 0 for an unset level.
func levelSet(level *float64) bool {
	return level != nil && *level > 0
}

func hitStopLoss(side Side, p *Position, price float64) bool {
	if !levelSet(p.StopLoss) {
		return false
	}
	if side == Long {
		return price <= *p.StopLoss
	}
	return price >= *p.StopLoss
}

func hitTakeProfit(side Side, p *Position, price float64) bool {
	if !levelSet(p.TakeProfit) {
		return false
	}
	if side == Long {
		return price >= *p.TakeProfit
	}
	return price <= *p.TakeProfit
}

// CheckTriggers closes every open position whose stop-loss or take-profit
// was crossed at the given prices. Instruments are scanned in sorted order,
// long before short. Stop-loss wins when both levels are crossed. A
// position is closed in full, so it can fire at most once per scan.
// Instruments without a usable price are skipped.
func (x *Executor) CheckTriggers(acct *Account, prices map[string]float64) []Trigger {
	var fired []Trigger

	for _, sym := range sortedSymbols(prices) {
		price := prices[sym]
		if !validPrice(price) {
			continue
		}
		for _, side := range []Side{Long, Short} {
			pos := acct.Position(sym, side)
			if pos == nil || !pos.Open() {
				continue
			}

			reason := ""
			switch {
			case hitStopLoss(side, pos, price):
				reason = ReasonStopLoss
			case hitTakeProfit(side, pos, price):
				reason = ReasonTakeProfit
			}
			if reason == "" {
				continue
			}

			amount := pos.Amount
			pnl, ok := x.close(acct, sym, side, price, 1.0, reason)
			if !ok {
				continue
			}
			logger.Infof("%s triggered for %s %s at %s (P&L: $%.2f)", reason, sym, side, fmtPrice(price), pnl)
			fired = append(fired, Trigger{
				Instrument: sym,
				Side:       side,
				Reason:     reason,
				Price:      price,
				Amount:     amount,
				RealizedPL: pnl,
			})
		}
	}
	return fired
}

func sortedSymbols(prices map[string]float64) []string {
	out := make([]string, 0, len(prices))
	for sym := range prices {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
