package ledger

import "time"

// Fill actions.
const (
	ActionOpen  = "OPEN"
	ActionClose = "CLOSE"
	ActionBuy   = "BUY"
	ActionSell  = "SELL"
)

// Fill describes one successful mutation of an account book. Holds do not
// produce fills.
type Fill struct {
	ID         string
	Time       time.Time
	Instrument string
	Side       Side
	Action     string
	Amount     float64
	Price      float64
	// CostBasis is the average price of the affected amount: the new
	// average after an open or buy, the average closed against otherwise.
	CostBasis  float64
	Margin     float64
	RealizedPL float64
	StopLoss   *float64
	TakeProfit *float64
	Tag        string
}

// FillListener is notified after each fill has been applied to the account.
type FillListener interface {
	OnFill(Fill)
}

// FillListenerFunc adapts a function to FillListener.
type FillListenerFunc func(Fill)

func (f FillListenerFunc) OnFill(fl Fill) { f(fl) }
