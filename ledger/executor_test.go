package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/traderagent/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func ptr(v float64) *float64 { return &v }

func newAccount(t *testing.T, balance float64) *Account {
	t.Helper()
	return NewAccount(balance, true, "BTC", "SOL")
}

type fillRecorder struct {
	fills []Fill
}

func (r *fillRecorder) OnFill(f Fill) { r.fills = append(r.fills, f) }

func TestOpenThenCloseLongWithProfit(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 10000)
	x := NewExecutor()

	ok := x.OpenLong(acct, "BTC", 60000, action.OpenLong{Percent: 0.5}, acct.Tag())
	require.True(t, ok)

	pos := acct.Position("BTC", Long)
	assert.InDelta(t, 0.083333, pos.Amount, 1e-6)
	assert.Equal(t, 60000.0, pos.AvgPrice)
	assert.InDelta(t, 5000, acct.Margin.Used, tol)
	assert.InDelta(t, 5000, acct.Margin.Available, tol)

	ok = x.CloseLong(acct, "BTC", 66000, action.CloseLong{Percent: 1}, acct.Tag())
	require.True(t, ok)

	assert.InDelta(t, 500, acct.RealizedPL, tol)
	assert.InDelta(t, 10500, acct.Margin.Available, tol)
	assert.Equal(t, 0.0, acct.Margin.Used)
	assert.True(t, pos.Flat())

	require.Len(t, acct.History, 2)
	assert.Equal(t, "[PAPER] OPENED LONG 0.083333 BTC at 60000 (Margin: $5000.00)", acct.History[0])
	assert.Equal(t, "[PAPER] CLOSED LONG 0.083333 BTC at 66000 (P&L: $500.00)", acct.History[1])
}

func TestOpenCloseSamePriceIsValueNeutral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		open  action.Instruction
		close action.Instruction
		side  Side
	}{
		{"long", action.OpenLong{Percent: 0.37}, action.CloseLong{Percent: 1}, Long},
		{"short", action.OpenShort{Percent: 0.81}, action.CloseShort{Percent: 1}, Short},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct := newAccount(t, 12345.67)
			x := NewExecutor()

			require.True(t, x.Apply(acct, "SOL", 143.21, tt.open, "[T]"))
			require.True(t, x.Apply(acct, "SOL", 143.21, tt.close, "[T]"))

			assert.InDelta(t, 0, acct.RealizedPL, tol)
			assert.InDelta(t, 12345.67, acct.Margin.Available, tol)
			assert.InDelta(t, 0, acct.Margin.Used, tol)
			assert.True(t, acct.Position("SOL", tt.side).Flat())
		})
	}
}

func TestOpenAveragesIntoExistingPosition(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 1000)
	x := NewExecutor()

	require.True(t, x.OpenLong(acct, "SOL", 100, action.OpenLong{Percent: 0.5}, "[T]"))
	require.True(t, x.OpenLong(acct, "SOL", 200, action.OpenLong{Percent: 1}, "[T]"))

	pos := acct.Position("SOL", Long)
	assert.InDelta(t, 7.5, pos.Amount, tol)
	assert.InDelta(t, 1000.0/7.5, pos.AvgPrice, tol)
	assert.InDelta(t, 1000, acct.Margin.Used, tol)
	assert.InDelta(t, 0, acct.Margin.Available, tol)
}

func TestOpenOverwritesLevels(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 1000)
	x := NewExecutor()

	require.True(t, x.OpenShort(acct, "SOL", 150, action.OpenShort{Percent: 0.2, StopLoss: ptr(160), TakeProfit: ptr(140)}, "[T]"))
	pos := acct.Position("SOL", Short)
	require.NotNil(t, pos.StopLoss)
	require.NotNil(t, pos.TakeProfit)
	assert.Equal(t, 160.0, *pos.StopLoss)
	assert.Equal(t, 140.0, *pos.TakeProfit)
	assert.Equal(t, "[T] OPENED SHORT 1.333333 SOL at 150 (Margin: $200.00) [SL: 160] [TP: 140]", acct.History[0])

	require.True(t, x.OpenShort(acct, "SOL", 150, action.OpenShort{Percent: 0.1, StopLoss: ptr(170)}, "[T]"))
	require.NotNil(t, pos.StopLoss)
	assert.Equal(t, 170.0, *pos.StopLoss)
	assert.Nil(t, pos.TakeProfit)
}

func TestOpenDoesNotAliasCallerLevels(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 1000)
	x := NewExecutor()
	sl := 90.0

	require.True(t, x.OpenLong(acct, "SOL", 100, action.OpenLong{Percent: 0.1, StopLoss: &sl}, "[T]"))
	sl = 1
	assert.Equal(t, 90.0, *acct.Position("SOL", Long).StopLoss)
}

func TestShortCloseProfitsOnDecline(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 10000)
	x := NewExecutor()

	require.True(t, x.OpenShort(acct, "SOL", 150, action.OpenShort{Percent: 0.3}, "[T]"))
	require.True(t, x.CloseShort(acct, "SOL", 120, action.CloseShort{Percent: 1}, "[T]"))

	// 3000 margin buys 20 SOL; 30 down on each.
	assert.InDelta(t, 600, acct.RealizedPL, tol)
	assert.InDelta(t, 10600, acct.Margin.Available, tol)
	assert.Equal(t, 0.0, acct.Margin.Used)
}

func TestPartialClosesAreProportional(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 10000)
	x := NewExecutor()
	require.True(t, x.OpenLong(acct, "BTC", 100, action.OpenLong{Percent: 1}, "[T]"))

	require.True(t, x.CloseLong(acct, "BTC", 120, action.CloseLong{Percent: 0.3}, "[T]"))
	first := acct.RealizedPL
	pos := acct.Position("BTC", Long)
	assert.InDelta(t, 70, pos.Amount, tol)
	assert.InDelta(t, 100, pos.AvgPrice, tol)
	assert.InDelta(t, 7000, acct.Margin.Used, tol)

	require.True(t, x.CloseLong(acct, "BTC", 90, action.CloseLong{Percent: 1}, "[T]"))
	second := acct.RealizedPL - first

	fullAt := func(price float64) float64 { return (price - 100) * 100 }
	assert.InDelta(t, 0.3*fullAt(120), first, tol)
	assert.InDelta(t, 0.7*fullAt(90), second, tol)
	assert.InDelta(t, 0.3*fullAt(120)+0.7*fullAt(90), acct.RealizedPL, tol)
	assert.True(t, pos.Flat())
}

func TestZeroPercentIsSuccessfulNoop(t *testing.T) {
	t.Parallel()

	ins := []action.Instruction{
		action.OpenLong{Percent: 0, StopLoss: ptr(1)},
		action.OpenShort{Percent: 0},
		action.CloseLong{Percent: 0},
		action.CloseShort{Percent: 0},
		action.SpotBuy{Percent: 0},
		action.SpotSell{Percent: 0},
	}

	for _, in := range ins {
		acct := newAccount(t, 1000)
		before := *acct.Position("BTC", Long)
		x := NewExecutor()

		assert.True(t, x.Apply(acct, "BTC", 100, in, "[T]"), "%T", in)
		assert.Equal(t, before, *acct.Position("BTC", Long))
		assert.Equal(t, 1000.0, acct.Margin.Available)
		assert.Equal(t, 1000.0, acct.Cash)
		assert.Empty(t, acct.History)
	}
}

func TestRejectionsLeaveAccountUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*Account)
		in    action.Instruction
		price float64
	}{
		{"no margin", func(a *Account) { a.Margin.Available = 0 }, action.OpenLong{Percent: 0.5}, 100},
		{"negative margin", func(a *Account) { a.Margin.Available = -5 }, action.OpenShort{Percent: 0.5}, 100},
		{"nothing to close long", nil, action.CloseLong{Percent: 1}, 100},
		{"nothing to close short", nil, action.CloseShort{Percent: 1}, 100},
		{"no cash", func(a *Account) { a.Cash = 0 }, action.SpotBuy{Percent: 0.5}, 100},
		{"nothing to sell", nil, action.SpotSell{Percent: 1}, 100},
		{"zero price", nil, action.OpenLong{Percent: 0.5}, 0},
		{"percent above one", nil, action.OpenLong{Percent: 1.5}, 100},
		{"unknown instrument close", nil, action.CloseLong{Percent: 1}, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct := newAccount(t, 1000)
			if tt.setup != nil {
				tt.setup(acct)
			}
			before := *acct
			rec := &fillRecorder{}
			x := NewExecutor()
			x.SetFillListener(rec)

			sym := "BTC"
			if tt.name == "unknown instrument close" {
				sym = "DOGE"
			}
			assert.False(t, x.Apply(acct, sym, tt.price, tt.in, "[T]"))
			assert.Equal(t, before.Margin, acct.Margin)
			assert.Equal(t, before.Cash, acct.Cash)
			assert.Equal(t, before.RealizedPL, acct.RealizedPL)
			assert.True(t, acct.Position("BTC", Long).Flat())
			assert.Empty(t, acct.History)
			assert.Empty(t, rec.fills)
		})
	}
}

func TestOpenCreatesUnknownInstrument(t *testing.T) {
	t.Parallel()

	acct := NewAccount(1000, false)
	x := NewExecutor()

	require.True(t, x.OpenLong(acct, "ETH", 2000, action.OpenLong{Percent: 0.1}, acct.Tag()))
	assert.InDelta(t, 0.05, acct.Position("ETH", Long).Amount, tol)
	assert.Contains(t, acct.History[0], "[LIVE] OPENED LONG")
	assert.Equal(t, []string{"ETH"}, acct.Instruments())
}

func TestSpotBuyAndSell(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 1000)
	acct.Margin.Available = 0
	x := NewExecutor()

	require.True(t, x.SpotBuy(acct, "BTC", 100, action.SpotBuy{Percent: 0.5}, "[T]"))
	h := acct.Holding("BTC")
	assert.InDelta(t, 5, h.Amount, tol)
	assert.Equal(t, 100.0, h.AvgPrice)
	assert.InDelta(t, 500, acct.Cash, tol)
	assert.Equal(t, "[T] BOUGHT 5.000000 BTC at 100 using 50% of USD", acct.History[0])

	require.True(t, x.SpotBuy(acct, "BTC", 250, action.SpotBuy{Percent: 1}, "[T]"))
	assert.InDelta(t, 7, h.Amount, tol)
	assert.InDelta(t, 1000.0/7, h.AvgPrice, tol)
	assert.InDelta(t, 0, acct.Cash, tol)

	require.True(t, x.SpotSell(acct, "BTC", 200, action.SpotSell{Percent: 1}, "[T]"))
	assert.InDelta(t, 1400, acct.Cash, tol)
	assert.InDelta(t, 400, acct.RealizedPL, tol)
	assert.Equal(t, Holding{}, *h)

	// margin pool never touched
	assert.Equal(t, 0.0, acct.Margin.Available)
	assert.Equal(t, 0.0, acct.Margin.Used)
}

func TestHoldAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 0)
	x := NewExecutor()

	assert.True(t, x.Apply(acct, "SOL", 142.5, action.Hold{}, "[PAPER]"))
	assert.True(t, x.Apply(acct, "SOL", 142.5, nil, "[PAPER]"))
	assert.Equal(t, []string{"[PAPER] HELD SOL at 142.5", "[PAPER] HELD SOL at 142.5"}, acct.History)
}

func TestFillsAreReported(t *testing.T) {
	t.Parallel()

	acct := newAccount(t, 1000)
	rec := &fillRecorder{}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	x := NewExecutor()
	x.SetFillListener(rec)
	x.SetClock(func() time.Time { return at })

	require.True(t, x.OpenLong(acct, "SOL", 100, action.OpenLong{Percent: 0.5, TakeProfit: ptr(120)}, "[T]"))
	require.True(t, x.CloseLong(acct, "SOL", 110, action.CloseLong{Percent: 0.5}, "[T]"))
	require.True(t, x.Hold(acct, "SOL", 110, action.Hold{}, "[T]"))

	require.Len(t, rec.fills, 2)
	open, closed := rec.fills[0], rec.fills[1]

	assert.Equal(t, ActionOpen, open.Action)
	assert.Equal(t, Long, open.Side)
	assert.InDelta(t, 5, open.Amount, tol)
	assert.InDelta(t, 500, open.Margin, tol)
	assert.Equal(t, 120.0, *open.TakeProfit)
	assert.True(t, open.Time.Equal(at))
	assert.Len(t, open.ID, 26)

	assert.Equal(t, ActionClose, closed.Action)
	assert.InDelta(t, 2.5, closed.Amount, tol)
	assert.InDelta(t, 25, closed.RealizedPL, tol)
	assert.InDelta(t, 250, closed.Margin, tol)
	assert.Equal(t, 100.0, closed.CostBasis)
	assert.NotEqual(t, open.ID, closed.ID)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	acct := newAccount(t, 10000)
	x := NewExecutor()
	syms := []string{"BTC", "SOL"}

	pick := func() action.Instruction {
		pct := float64(rng.Intn(101)) / 100
		switch rng.Intn(7) {
		case 0:
			return action.OpenLong{Percent: pct, StopLoss: ptr(50)}
		case 1:
			return action.OpenShort{Percent: pct, TakeProfit: ptr(60)}
		case 2:
			return action.CloseLong{Percent: pct}
		case 3:
			return action.CloseShort{Percent: pct}
		case 4:
			return action.SpotBuy{Percent: pct}
		case 5:
			return action.SpotSell{Percent: pct}
		}
		return action.Hold{}
	}

	for i := 0; i < 2000; i++ {
		sym := syms[rng.Intn(len(syms))]
		price := 50 + rng.Float64()*100
		x.Apply(acct, sym, price, pick(), "[T]")
		if i%10 == 0 {
			x.CheckTriggers(acct, map[string]float64{sym: price})
		}
		require.NoError(t, acct.Check(), "step %d", i)
	}
}
