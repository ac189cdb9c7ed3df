package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is the account state at one point in time, suitable for an
// equity curve.
type Snapshot struct {
	Time         time.Time
	Cash         float64
	SpotCost     float64
	Available    float64
	Used         float64
	RealizedPL   float64
	UnrealizedPL float64
}

// Equity is everything the account is worth at the snapshot prices.
func (s Snapshot) Equity() float64 {
	return s.Cash + s.SpotCost + s.Available + s.Used + s.UnrealizedPL
}

// TakeSnapshot values acct at prices.
func TakeSnapshot(acct *Account, prices map[string]float64, at time.Time) Snapshot {
	var spotCost float64
	for _, h := range acct.Spot {
		if h != nil && h.Amount > 0 {
			spotCost += h.Amount * h.AvgPrice
		}
	}
	return Snapshot{
		Time:         at,
		Cash:         acct.Cash,
		SpotCost:     spotCost,
		Available:    acct.Margin.Available,
		Used:         acct.Margin.Used,
		RealizedPL:   acct.RealizedPL,
		UnrealizedPL: UnrealizedPL(acct, prices),
	}
}

// PositionSummary renders one line per open long or short position.
func PositionSummary(acct *Account, prices map[string]float64) string {
	var lines []string
	for _, sym := range acct.Instruments() {
		price, known := prices[sym]
		for _, side := range []Side{Long, Short} {
			pos := acct.Position(sym, side)
			if pos == nil || !pos.Open() {
				continue
			}
			line := fmt.Sprintf("%s %s: %.6f @ %.2f", sym, side, pos.Amount, pos.AvgPrice)
			if known && validPrice(price) {
				line += fmt.Sprintf(" (P&L: $%.2f)", positionPL(side, pos.AvgPrice, price, pos.Amount))
			} else {
				line += " (P&L: n/a)"
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "No open positions"
	}
	return strings.Join(lines, "\n")
}

// BalanceSummary renders the cash, margin and PnL totals.
func BalanceSummary(acct *Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "USD: $%.2f\n", acct.Cash)
	fmt.Fprintf(&b, "Available Margin: $%.2f\n", acct.Margin.Available)
	fmt.Fprintf(&b, "Used Margin: $%.2f\n", acct.Margin.Used)
	fmt.Fprintf(&b, "Realized P&L: $%.2f\n", acct.RealizedPL)
	fmt.Fprintf(&b, "Total Trades: %d", len(acct.History))
	return b.String()
}
