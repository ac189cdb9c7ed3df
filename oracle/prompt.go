package oracle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
)

const timeLayout = "2006-01-02 15:04"

const actionCatalogue = `TRADING GUIDELINES:
- Consider volume analysis when making decisions:
  * HIGH volume = Strong conviction moves, good for trend following
  * ELEVATED volume = Moderate conviction, suitable for smaller positions
  * NORMAL volume = Standard market activity, use regular position sizing
  * LOW volume = Weak conviction, consider smaller positions or waiting
- Volume spikes often precede significant price movements
- Low volume in trending markets may indicate weakening momentum

Available Actions:
- BUY_LONG [percent] [stop_loss] [take_profit] - Open long position (no leverage)
- SELL_SHORT [percent] [stop_loss] [take_profit] - Open short position (no leverage)
- CLOSE_LONG [percent] - Close long position (partial or full)
- CLOSE_SHORT [percent] - Close short position (partial or full)
- BUY [percent] - Simple spot buy (legacy)
- SELL [percent] - Simple spot sell (legacy)
- HOLD - Do nothing

Examples:
BTC: BUY_LONG 50% 58000 70000
SOL: SELL_SHORT 25% 180 120
BTC: CLOSE_LONG 100%
`

// BuildPrompt renders the request as the natural-language prompt sent to a
// language model. Instruments appear in sorted order.
func BuildPrompt(req Request) string {
	syms := market.Symbols(req.Histories)

	sections := make([]string, 0, len(syms))
	for _, sym := range syms {
		sections = append(sections, marketSection(sym, req.Histories[sym], req.UseVolume))
	}

	var b strings.Builder
	b.WriteString("\nYou are an advanced crypto trading AI with access to short selling and risk management tools.\n")
	b.WriteString("IMPORTANT: You cannot use leverage - all positions are 1:1 (no amplification).\n\n")
	b.WriteString("Here are the market analysis data for each coin:\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n")

	acct := req.Account
	if acct == nil {
		acct = ledger.NewAccount(0, true)
	}
	b.WriteString("Your current balance and holdings:\n")
	fmt.Fprintf(&b, "USD: $%.2f\n", acct.Cash)
	fmt.Fprintf(&b, "Realized P&L: $%.2f\n", acct.RealizedPL)
	fmt.Fprintf(&b, "Margin Available: $%.2f, Used: $%.2f\n\n", acct.Margin.Available, acct.Margin.Used)

	b.WriteString("Current Positions:")
	if pos := positionLines(acct); pos != "" {
		b.WriteString(pos)
	} else {
		b.WriteString(" None")
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "For each coin (%s), what is your recommended action?\n\n", joinAnd(syms))
	b.WriteString(actionCatalogue)
	b.WriteString("\nThe reply should adhere strictly to the following format:\n")
	for _, sym := range syms {
		fmt.Fprintf(&b, "%s: [ACTION] [parameters]\n", sym)
	}
	b.WriteString("\nSet stop losses and take profits to manage risk. No leverage is available.\n")
	return b.String()
}

func marketSection(sym string, s market.Series, useVolume bool) string {
	points := make([]string, len(s))
	for i, p := range s {
		points[i] = fmt.Sprintf("('%s', %s)", p.Time.UTC().Format(timeLayout), fmtFloat(ledger.Round2(p.Price)))
	}
	out := fmt.Sprintf("%s price trend (1h intervals, past 3 days):\n[%s]", sym, strings.Join(points, ", "))

	if !useVolume {
		return out
	}
	vols := s.Volumes()
	if len(vols) == 0 {
		return out
	}
	recent := vols[max(0, len(vols)-5):]
	rv := make([]string, len(recent))
	for i, v := range recent {
		rv[i] = fmtFloat(ledger.Round2(v))
	}
	return out + fmt.Sprintf("\n%s volume analysis: %s\nRecent volumes: [%s]", sym, market.AnalyzeVolume(vols), strings.Join(rv, ", "))
}

func positionLines(acct *ledger.Account) string {
	var b strings.Builder
	for _, sym := range acct.Instruments() {
		for _, side := range []ledger.Side{ledger.Long, ledger.Short} {
			p := acct.Position(sym, side)
			if p == nil || !p.Open() {
				continue
			}
			fmt.Fprintf(&b, "\n%s %s: %.6f @ %.2f", sym, side, p.Amount, p.AvgPrice)
		}
	}
	return b.String()
}

func joinAnd(syms []string) string {
	switch len(syms) {
	case 0:
		return "none"
	case 1:
		return syms[0]
	}
	return strings.Join(syms[:len(syms)-1], ", ") + " and " + syms[len(syms)-1]
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
