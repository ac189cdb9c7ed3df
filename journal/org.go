package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatFillOrg renders a fill as an Org-mode block. Structured facts go in
// the PROPERTIES drawer and a Notes heading is left for the reader.
func FormatFillOrg(r FillRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Fill: %s %s %s (%s)\n", r.Instrument, r.Action, r.Side, shortID(r.FillID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":FILL_ID: %s\n", r.FillID)
	fmt.Fprintf(&b, ":ID: %s\n", r.FillID)
	if r.RunID != "" {
		fmt.Fprintf(&b, ":RUN_ID: %s\n", r.RunID)
	}
	fmt.Fprintf(&b, ":TIME: %s\n", r.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", r.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", r.Side)
	fmt.Fprintf(&b, ":ACTION: %s\n", r.Action)
	fmt.Fprintf(&b, ":AMOUNT: %.6f\n", r.Amount)
	fmt.Fprintf(&b, ":PRICE: %.2f\n", r.Price)
	fmt.Fprintf(&b, ":COST_BASIS: %.2f\n", r.CostBasis)
	if r.Margin != 0 {
		fmt.Fprintf(&b, ":MARGIN: %.2f\n", r.Margin)
	}
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", r.RealizedPL)
	if r.StopLoss != nil {
		fmt.Fprintf(&b, ":STOP_LOSS: %.2f\n", *r.StopLoss)
	}
	if r.TakeProfit != nil {
		fmt.Fprintf(&b, ":TAKE_PROFIT: %.2f\n", *r.TakeProfit)
	}
	fmt.Fprintf(&b, ":TAG: %s\n", r.Tag)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Notes\n- \n")
	return b.String()
}

// FormatFillsOrg renders multiple fills separated by blank lines.
func FormatFillsOrg(fills []FillRecord) string {
	var b strings.Builder
	for i, r := range fills {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatFillOrg(r))
	}
	return b.String()
}

// shortID keeps the random tail of a ULID; the leading characters only
// encode the timestamp.
func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
