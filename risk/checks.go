package risk

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/traderagent/ledger"
)

type Violation struct {
	Code string
	Msg  string
}

func (v Violation) String() string { return v.Code + ": " + v.Msg }

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages.
func (d Decision) Reason() string {
	parts := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Evaluate checks an open against the policy and the account as it stands
// before the open. The margin pool is Available plus Used.
func Evaluate(p Policy, in Intent, acct *ledger.Account) Decision {
	d := Decision{Allowed: true}
	pool := acct.Margin.Available + acct.Margin.Used

	if in.StopLoss != nil {
		d.PlannedRisk = PlannedRisk(in.Amount(), in.Entry, *in.StopLoss)
		d.PlannedRiskPct = RiskPct(d.PlannedRisk, pool)
		if in.TakeProfit != nil {
			d.PlannedRR = RR(in.Entry, *in.StopLoss, *in.TakeProfit)
		}
	}

	if p.RequireStop && in.StopLoss == nil {
		d.add("NO_STOP", "stop-loss is required")
	}
	if p.MaxRiskPct > 0 && in.StopLoss != nil && d.PlannedRiskPct > p.MaxRiskPct {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%", 100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}
	if p.MinRR > 0 && in.StopLoss != nil && in.TakeProfit != nil && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW", fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}

	if p.MaxOpenPositions > 0 {
		open := OpenPositions(acct)
		if !alreadyOpen(acct, in) && open >= p.MaxOpenPositions {
			d.add("TOO_MANY_POSITIONS", fmt.Sprintf("open positions %d >= max %d", open, p.MaxOpenPositions))
		}
	}

	if p.MaxMarginPct > 0 && pool > 0 {
		after := (acct.Margin.Used + in.Margin) / pool
		if after > p.MaxMarginPct {
			d.add("MARGIN_TOO_HIGH",
				fmt.Sprintf("margin used would be %.2f%%, max %.2f%%", 100*after, 100*p.MaxMarginPct))
		}
	}
	return d
}

// OpenPositions counts open long and short books.
func OpenPositions(acct *ledger.Account) int {
	n := 0
	for _, sym := range acct.Instruments() {
		for _, side := range []ledger.Side{ledger.Long, ledger.Short} {
			if pos := acct.Position(sym, side); pos != nil && pos.Open() {
				n++
			}
		}
	}
	return n
}

func alreadyOpen(acct *ledger.Account, in Intent) bool {
	side := ledger.Short
	if in.Long {
		side = ledger.Long
	}
	pos := acct.Position(in.Instrument, side)
	return pos != nil && pos.Open()
}
