package action

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Leverage is the only leverage the account supports. Positions are 1:1.
const Leverage = 1.0

// Instruction is one decoded trade instruction for a single instrument.
// The set of implementations is closed; switch on the concrete type.
type Instruction interface {
	// Verb returns the wire verb, e.g. BUY_LONG.
	Verb() string
	instruction()
}

// OpenLong opens or adds to a long position using Percent of available margin.
type OpenLong struct {
	Percent    float64
	StopLoss   *float64
	TakeProfit *float64
}

// OpenShort opens or adds to a short position using Percent of available margin.
type OpenShort struct {
	Percent    float64
	StopLoss   *float64
	TakeProfit *float64
}

// CloseLong closes Percent of the long position.
type CloseLong struct {
	Percent float64
}

// CloseShort closes Percent of the short position.
type CloseShort struct {
	Percent float64
}

// SpotBuy spends Percent of the cash reserve on the spot holding.
type SpotBuy struct {
	Percent float64
}

// SpotSell sells Percent of the spot holding back into cash.
type SpotSell struct {
	Percent float64
}

// Hold leaves the instrument untouched.
type Hold struct{}

const (
	VerbBuyLong    = "BUY_LONG"
	VerbSellShort  = "SELL_SHORT"
	VerbCloseLong  = "CLOSE_LONG"
	VerbCloseShort = "CLOSE_SHORT"
	VerbBuy        = "BUY"
	VerbSell       = "SELL"
	VerbHold       = "HOLD"
)

func (OpenLong) Verb() string   { return VerbBuyLong }
func (OpenShort) Verb() string  { return VerbSellShort }
func (CloseLong) Verb() string  { return VerbCloseLong }
func (CloseShort) Verb() string { return VerbCloseShort }
func (SpotBuy) Verb() string    { return VerbBuy }
func (SpotSell) Verb() string   { return VerbSell }
func (Hold) Verb() string       { return VerbHold }

func (OpenLong) instruction()   {}
func (OpenShort) instruction()  {}
func (CloseLong) instruction()  {}
func (CloseShort) instruction() {}
func (SpotBuy) instruction()    {}
func (SpotSell) instruction()   {}
func (Hold) instruction()       {}

// Percent returns the fraction carried by in, or 0 for Hold.
func Percent(in Instruction) float64 {
	switch v := in.(type) {
	case OpenLong:
		return v.Percent
	case OpenShort:
		return v.Percent
	case CloseLong:
		return v.Percent
	case CloseShort:
		return v.Percent
	case SpotBuy:
		return v.Percent
	case SpotSell:
		return v.Percent
	}
	return 0
}

// Format renders in back into the line grammar accepted by Decode, without
// the symbol prefix.
func Format(in Instruction) string {
	switch v := in.(type) {
	case OpenLong:
		return formatOpen(v.Verb(), v.Percent, v.StopLoss, v.TakeProfit)
	case OpenShort:
		return formatOpen(v.Verb(), v.Percent, v.StopLoss, v.TakeProfit)
	case Hold:
		return v.Verb()
	case nil:
		return VerbHold
	}
	return fmt.Sprintf("%s %s", in.Verb(), formatPercent(Percent(in)))
}

func formatOpen(verb string, pct float64, sl, tp *float64) string {
	return fmt.Sprintf("%s %s %s %s", verb, formatPercent(pct), formatLevel(sl), formatLevel(tp))
}

func formatPercent(pct float64) string {
	return decimal.NewFromFloat(pct).Shift(2).String() + "%"
}

func formatLevel(p *float64) string {
	if p == nil {
		return nullLevel
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
