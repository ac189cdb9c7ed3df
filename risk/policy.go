package risk

import (
	"github.com/rustyeddy/traderagent/action"
	"github.com/rustyeddy/traderagent/ledger"
)

// Policy limits what an oracle may open. A zero field disables its check,
// so the zero Policy allows everything.
type Policy struct {
	// MaxRiskPct caps the loss at the stop-loss as a fraction of the
	// margin pool, e.g. 0.02.
	MaxRiskPct float64 `json:"max_risk_pct" yaml:"max_risk_pct"`

	// MinRR is the minimum reward to risk ratio when both levels are set.
	MinRR float64 `json:"min_rr" yaml:"min_rr"`

	// RequireStop rejects opens without a stop-loss.
	RequireStop bool `json:"require_stop" yaml:"require_stop"`

	// MaxOpenPositions caps the number of open long and short books.
	MaxOpenPositions int `json:"max_open_positions" yaml:"max_open_positions"`

	// MaxMarginPct caps used margin after the open as a fraction of the
	// margin pool.
	MaxMarginPct float64 `json:"max_margin_pct" yaml:"max_margin_pct"`
}

// Enabled reports whether any check is switched on.
func (p Policy) Enabled() bool {
	return p.MaxRiskPct > 0 || p.MinRR > 0 || p.RequireStop || p.MaxOpenPositions > 0 || p.MaxMarginPct > 0
}

// Intent is an open the oracle asked for, sized at the current price.
type Intent struct {
	Instrument string
	Long       bool
	Margin     float64
	Entry      float64
	StopLoss   *float64
	TakeProfit *float64
}

// Amount is the number of units the intent would buy or sell short.
func (in Intent) Amount() float64 {
	if in.Entry <= 0 {
		return 0
	}
	return in.Margin / in.Entry
}

// IntentFor sizes an open instruction against the account's available
// margin. It returns false for anything that is not an open.
func IntentFor(acct *ledger.Account, instrument string, price float64, in action.Instruction) (Intent, bool) {
	it := Intent{Instrument: instrument, Entry: price}
	var pct float64
	switch v := in.(type) {
	case action.OpenLong:
		it.Long, pct, it.StopLoss, it.TakeProfit = true, v.Percent, v.StopLoss, v.TakeProfit
	case action.OpenShort:
		pct, it.StopLoss, it.TakeProfit = v.Percent, v.StopLoss, v.TakeProfit
	default:
		return Intent{}, false
	}
	if pct <= 0 {
		return Intent{}, false
	}
	it.Margin = acct.Margin.Available * pct
	return it, true
}
