package ledger

import (
	"fmt"
	"slices"
)

// Side is the direction of a margin position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
	// Spot marks fills against the legacy cash/holding book.
	Spot Side = "SPOT"
)

const (
	TagPaper = "[PAPER]"
	TagLive  = "[LIVE]"
)

// Margin is the pool backing long and short positions. Without leverage,
// Used is the cost basis of everything open.
type Margin struct {
	Available float64 `json:"available"`
	Used      float64 `json:"used"`
}

// Position is one side of an instrument. A flat position has zero amount,
// zero average price and no stop-loss or take-profit.
type Position struct {
	Amount     float64  `json:"amount"`
	AvgPrice   float64  `json:"avg_price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
}

// Open reports whether the position holds any amount.
func (p *Position) Open() bool { return p.Amount > 0 }

// Flat reports whether the position is in its canonical empty state.
func (p *Position) Flat() bool {
	return p.Amount == 0 && p.AvgPrice == 0 && p.StopLoss == nil && p.TakeProfit == nil
}

func (p *Position) reset() {
	*p = Position{}
}

// Holding is a legacy spot balance paid for out of Account.Cash.
type Holding struct {
	Amount   float64 `json:"amount"`
	AvgPrice float64 `json:"avg_price"`
}

// InstrumentPositions holds the long and short side for one instrument.
type InstrumentPositions struct {
	Long  Position `json:"long"`
	Short Position `json:"short"`
}

// Side returns a pointer to the requested side.
func (ip *InstrumentPositions) Side(s Side) *Position {
	if s == Short {
		return &ip.Short
	}
	return &ip.Long
}

// Account is the whole persisted trading state. It is owned by a single
// caller and mutated only through an Executor; nothing here is safe for
// concurrent use.
type Account struct {
	Cash         float64                         `json:"USD"`
	Spot         map[string]*Holding             `json:"coins"`
	Positions    map[string]*InstrumentPositions `json:"positions"`
	Margin       Margin                          `json:"margin"`
	History      []string                        `json:"history"`
	RealizedPL   float64                         `json:"realized_pnl"`
	PaperTrading bool                            `json:"paper_trading"`
}

// NewAccount returns a flat account with balance in both the cash reserve
// and the available margin pool, and empty books for each instrument.
func NewAccount(balance float64, paper bool, instruments ...string) *Account {
	a := &Account{
		Cash:         balance,
		Margin:       Margin{Available: balance},
		History:      []string{},
		PaperTrading: paper,
	}
	a.Normalize()
	for _, sym := range instruments {
		a.ensure(sym)
	}
	return a
}

// Normalize fills in nil maps and entries and clears stop-loss and
// take-profit levels that are not positive, e.g. after decoding an older or
// hand-edited record.
func (a *Account) Normalize() {
	if a.Spot == nil {
		a.Spot = make(map[string]*Holding)
	}
	if a.Positions == nil {
		a.Positions = make(map[string]*InstrumentPositions)
	}
	if a.History == nil {
		a.History = []string{}
	}
	for sym, ip := range a.Positions {
		if ip == nil {
			a.Positions[sym] = &InstrumentPositions{}
			continue
		}
		for _, s := range []Side{Long, Short} {
			p := ip.Side(s)
			if !levelSet(p.StopLoss) {
				p.StopLoss = nil
			}
			if !levelSet(p.TakeProfit) {
				p.TakeProfit = nil
			}
		}
	}
	for sym, h := range a.Spot {
		if h == nil {
			a.Spot[sym] = &Holding{}
		}
	}
}

// Tag is the history prefix for trades made by the account owner.
func (a *Account) Tag() string {
	if a.PaperTrading {
		return TagPaper
	}
	return TagLive
}

func (a *Account) ensure(sym string) *InstrumentPositions {
	a.Normalize()
	ip, ok := a.Positions[sym]
	if !ok {
		ip = &InstrumentPositions{}
		a.Positions[sym] = ip
	}
	if _, ok := a.Spot[sym]; !ok {
		a.Spot[sym] = &Holding{}
	}
	return ip
}

// Position returns the requested side for sym, or nil if the account has
// never seen sym.
func (a *Account) Position(sym string, s Side) *Position {
	ip, ok := a.Positions[sym]
	if !ok || ip == nil {
		return nil
	}
	return ip.Side(s)
}

// Holding returns the spot holding for sym, or nil.
func (a *Account) Holding(sym string) *Holding {
	h, ok := a.Spot[sym]
	if !ok {
		return nil
	}
	return h
}

// Instruments returns every instrument the account has a book for, sorted.
func (a *Account) Instruments() []string {
	seen := make(map[string]struct{}, len(a.Positions)+len(a.Spot))
	for sym := range a.Positions {
		seen[sym] = struct{}{}
	}
	for sym := range a.Spot {
		seen[sym] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// RecentHistory returns at most the last n history entries.
func (a *Account) RecentHistory(n int) []string {
	if n <= 0 || len(a.History) == 0 {
		return nil
	}
	if n > len(a.History) {
		n = len(a.History)
	}
	return slices.Clone(a.History[len(a.History)-n:])
}

func (a *Account) record(msg string) {
	a.History = append(a.History, msg)
}

// Check verifies the account invariants and returns the first violation.
// Available margin is not checked: a short closed far above its entry can
// lose more than the margin it released.
func (a *Account) Check() error {
	if a.Margin.Used < 0 {
		return fmt.Errorf("margin used is negative: %f", a.Margin.Used)
	}
	for _, sym := range a.Instruments() {
		if ip := a.Positions[sym]; ip != nil {
			for _, s := range []Side{Long, Short} {
				p := ip.Side(s)
				if p.Amount < 0 {
					return fmt.Errorf("%s %s amount is negative: %f", sym, s, p.Amount)
				}
				if p.AvgPrice < 0 {
					return fmt.Errorf("%s %s avg price is negative: %f", sym, s, p.AvgPrice)
				}
				if p.Amount == 0 && !p.Flat() {
					return fmt.Errorf("%s %s has no amount but carries price or levels", sym, s)
				}
			}
		}
		if h := a.Spot[sym]; h != nil && h.Amount < 0 {
			return fmt.Errorf("%s spot amount is negative: %f", sym, h.Amount)
		}
	}
	return nil
}
