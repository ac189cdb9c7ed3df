package ledger

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rustyeddy/traderagent/action"
	"github.com/rustyeddy/traderagent/internal/id"
	"github.com/rustyeddy/traderagent/internal/logger"
)

// dust is the residual amount below which a position counts as closed.
const dust = 1e-12

// Executor applies instructions to an Account. It holds no reference to the
// account between calls; callers must not invoke it concurrently on the
// same account.
//
// Every method returns false without touching the account when the trade is
// rejected: no margin, nothing to close, or an unusable price.
type Executor struct {
	listener FillListener
	now      func() time.Time
}

func NewExecutor() *Executor {
	return &Executor{now: time.Now}
}

// SetFillListener registers l to be told about every fill. nil removes it.
func (x *Executor) SetFillListener(l FillListener) {
	x.listener = l
}

// SetClock overrides the time stamped on fills. Backtests use the bar time.
func (x *Executor) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	x.now = now
}

// Apply dispatches in to the matching method. A nil instruction is a Hold.
func (x *Executor) Apply(acct *Account, instrument string, price float64, in action.Instruction, tag string) bool {
	switch v := in.(type) {
	case action.OpenLong:
		return x.OpenLong(acct, instrument, price, v, tag)
	case action.OpenShort:
		return x.OpenShort(acct, instrument, price, v, tag)
	case action.CloseLong:
		return x.CloseLong(acct, instrument, price, v, tag)
	case action.CloseShort:
		return x.CloseShort(acct, instrument, price, v, tag)
	case action.SpotBuy:
		return x.SpotBuy(acct, instrument, price, v, tag)
	case action.SpotSell:
		return x.SpotSell(acct, instrument, price, v, tag)
	case action.Hold, nil:
		return x.Hold(acct, instrument, price, action.Hold{}, tag)
	}
	logger.Warnf("ledger: unsupported instruction %T for %s", in, instrument)
	return false
}

func (x *Executor) OpenLong(acct *Account, instrument string, price float64, in action.OpenLong, tag string) bool {
	return x.open(acct, instrument, Long, price, in.Percent, in.StopLoss, in.TakeProfit, tag)
}

func (x *Executor) OpenShort(acct *Account, instrument string, price float64, in action.OpenShort, tag string) bool {
	return x.open(acct, instrument, Short, price, in.Percent, in.StopLoss, in.TakeProfit, tag)
}

func (x *Executor) CloseLong(acct *Account, instrument string, price float64, in action.CloseLong, tag string) bool {
	_, ok := x.close(acct, instrument, Long, price, in.Percent, tag)
	return ok
}

func (x *Executor) CloseShort(acct *Account, instrument string, price float64, in action.CloseShort, tag string) bool {
	_, ok := x.close(acct, instrument, Short, price, in.Percent, tag)
	return ok
}

// Hold records that nothing was done. It always succeeds.
func (x *Executor) Hold(acct *Account, instrument string, price float64, _ action.Hold, tag string) bool {
	acct.record(fmt.Sprintf("%s HELD %s at %s", tag, instrument, fmtPrice(price)))
	return true
}

func (x *Executor) open(acct *Account, instrument string, side Side, price, pct float64, sl, tp *float64, tag string) bool {
	if !validPercent(pct) {
		logger.Debugf("ledger: reject open %s %s: percent %v out of range", side, instrument, pct)
		return false
	}
	if pct == 0 {
		return true
	}
	if !validPrice(price) {
		logger.Debugf("ledger: reject open %s %s: bad price %v", side, instrument, price)
		return false
	}
	if acct.Margin.Available <= 0 {
		logger.Debugf("ledger: reject open %s %s: no available margin", side, instrument)
		return false
	}

	margin := acct.Margin.Available * pct
	delta := margin / price

	pos := acct.ensure(instrument).Side(side)
	if pos.Amount > 0 {
		pos.AvgPrice = (pos.Amount*pos.AvgPrice + margin) / (pos.Amount + delta)
		pos.Amount += delta
	} else {
		pos.Amount = delta
		pos.AvgPrice = price
	}
	pos.StopLoss = copyLevel(sl)
	pos.TakeProfit = copyLevel(tp)

	acct.Margin.Used += margin
	acct.Margin.Available = snap(acct.Margin.Available - margin)

	msg := fmt.Sprintf("%s OPENED %s %.6f %s at %s (Margin: $%.2f)", tag, side, delta, instrument, fmtPrice(price), margin)
	if sl != nil {
		msg += " [SL: " + fmtPrice(*sl) + "]"
	}
	if tp != nil {
		msg += " [TP: " + fmtPrice(*tp) + "]"
	}
	acct.record(msg)

	x.emit(Fill{
		Instrument: instrument,
		Side:       side,
		Action:     ActionOpen,
		Amount:     delta,
		Price:      price,
		CostBasis:  pos.AvgPrice,
		Margin:     margin,
		StopLoss:   copyLevel(sl),
		TakeProfit: copyLevel(tp),
		Tag:        tag,
	})
	return true
}

// close releases pct of a position at price and returns the realized PnL.
func (x *Executor) close(acct *Account, instrument string, side Side, price, pct float64, tag string) (float64, bool) {
	if !validPercent(pct) {
		logger.Debugf("ledger: reject close %s %s: percent %v out of range", side, instrument, pct)
		return 0, false
	}
	if pct == 0 {
		return 0, true
	}
	pos := acct.Position(instrument, side)
	if pos == nil || pos.Amount <= 0 {
		logger.Debugf("ledger: reject close %s %s: no position", side, instrument)
		return 0, false
	}
	if !validPrice(price) {
		logger.Debugf("ledger: reject close %s %s: bad price %v", side, instrument, price)
		return 0, false
	}

	closed := pos.Amount * pct
	avg := pos.AvgPrice
	pnl := positionPL(side, avg, price, closed)
	released := closed * avg

	pos.Amount -= closed
	if pos.Amount <= dust {
		pos.reset()
	}

	acct.Margin.Used = snap(acct.Margin.Used - released)
	acct.Margin.Available = snap(acct.Margin.Available + released + pnl)
	acct.RealizedPL += pnl

	acct.record(fmt.Sprintf("%s CLOSED %s %.6f %s at %s (P&L: $%.2f)", tag, side, closed, instrument, fmtPrice(price), pnl))

	x.emit(Fill{
		Instrument: instrument,
		Side:       side,
		Action:     ActionClose,
		Amount:     closed,
		Price:      price,
		CostBasis:  avg,
		Margin:     released,
		RealizedPL: pnl,
		Tag:        tag,
	})
	return pnl, true
}

// SpotBuy spends a fraction of the cash reserve on the spot holding. The
// margin pool is not involved.
func (x *Executor) SpotBuy(acct *Account, instrument string, price float64, in action.SpotBuy, tag string) bool {
	pct := in.Percent
	if !validPercent(pct) {
		return false
	}
	if pct == 0 {
		return true
	}
	if !validPrice(price) || acct.Cash <= 0 {
		logger.Debugf("ledger: reject spot buy %s: cash %.2f price %v", instrument, acct.Cash, price)
		return false
	}

	spend := acct.Cash * pct
	amount := spend / price

	acct.ensure(instrument)
	h := acct.Spot[instrument]
	if h.Amount > 0 {
		h.AvgPrice = (h.Amount*h.AvgPrice + spend) / (h.Amount + amount)
		h.Amount += amount
	} else {
		h.Amount = amount
		h.AvgPrice = price
	}
	acct.Cash = snap(acct.Cash - spend)

	acct.record(fmt.Sprintf("%s BOUGHT %.6f %s at %s using %.0f%% of USD", tag, amount, instrument, fmtPrice(price), pct*100))

	x.emit(Fill{
		Instrument: instrument,
		Side:       Spot,
		Action:     ActionBuy,
		Amount:     amount,
		Price:      price,
		CostBasis:  h.AvgPrice,
		Tag:        tag,
	})
	return true
}

// SpotSell sells a fraction of the spot holding back into cash.
func (x *Executor) SpotSell(acct *Account, instrument string, price float64, in action.SpotSell, tag string) bool {
	pct := in.Percent
	if !validPercent(pct) {
		return false
	}
	if pct == 0 {
		return true
	}
	h := acct.Holding(instrument)
	if h == nil || h.Amount <= 0 || !validPrice(price) {
		logger.Debugf("ledger: reject spot sell %s: nothing held or bad price %v", instrument, price)
		return false
	}

	sold := h.Amount * pct
	avg := h.AvgPrice
	pnl := (price - avg) * sold

	acct.Cash += sold * price
	h.Amount -= sold
	if h.Amount <= dust {
		*h = Holding{}
	}
	acct.RealizedPL += pnl

	acct.record(fmt.Sprintf("%s SOLD %.6f %s at %s (P&L: $%.2f)", tag, sold, instrument, fmtPrice(price), pnl))

	x.emit(Fill{
		Instrument: instrument,
		Side:       Spot,
		Action:     ActionSell,
		Amount:     sold,
		Price:      price,
		CostBasis:  avg,
		RealizedPL: pnl,
		Tag:        tag,
	})
	return true
}

func (x *Executor) emit(f Fill) {
	if x.listener == nil {
		return
	}
	now := time.Now
	if x.now != nil {
		now = x.now
	}
	f.Time = now()
	f.ID = id.At(f.Time)
	x.listener.OnFill(f)
}

func validPercent(pct float64) bool {
	return !math.IsNaN(pct) && pct >= 0 && pct <= 1
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

func copyLevel(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// snap clears floating point residue left by subtracting equal amounts.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

func fmtPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
