package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/traderagent/action"
	"github.com/rustyeddy/traderagent/journal"
	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
	"github.com/rustyeddy/traderagent/oracle"
	"github.com/rustyeddy/traderagent/risk"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func ramp(start float64, n int) market.Series {
	s := make(market.Series, n)
	for i := range s {
		s[i] = market.Point{Time: t0.Add(time.Duration(i) * time.Hour), Price: start + float64(i), Volume: 10}
	}
	return s
}

type memSaver struct {
	saves int
	last  *ledger.Account
	err   error
}

func (m *memSaver) Save(a *ledger.Account) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.last = a
	return nil
}

type memJournal struct {
	mu     sync.Mutex
	fills  []journal.FillRecord
	equity []journal.EquitySnapshot
}

func (m *memJournal) RecordFill(r journal.FillRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = append(m.fills, r)
	return nil
}

func (m *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *memJournal) Close() error { return nil }

func newRunner(t *testing.T, acct *ledger.Account, p market.Provider, o oracle.Oracle, s Saver, j journal.Journal) *Runner {
	t.Helper()
	r, err := New(Options{
		Account:     acct,
		Provider:    p,
		Oracle:      o,
		Saver:       s,
		Journal:     j,
		Instruments: []string{"SOL", "BTC"},
		UseVolume:   true,
		Now:         func() time.Time { return t0 },
	})
	require.NoError(t, err)
	return r
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	acct := ledger.NewAccount(1, true)
	p := market.StaticProvider{}
	o := oracle.NewStatic()

	tests := []struct {
		name string
		opts Options
	}{
		{"no account", Options{Provider: p, Oracle: o, Instruments: []string{"BTC"}}},
		{"no provider", Options{Account: acct, Oracle: o, Instruments: []string{"BTC"}}},
		{"no oracle", Options{Account: acct, Provider: p, Instruments: []string{"BTC"}}},
		{"no instruments", Options{Account: acct, Provider: p, Oracle: o}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRound(t *testing.T) {
	t.Parallel()

	acct := ledger.NewAccount(10000, true, "BTC", "SOL")
	p := market.StaticProvider{"BTC": ramp(100, 5), "SOL": ramp(20, 5)}
	o := oracle.NewStatic("btc: buy_long 50% 90 200\nSOL: HOLD\nETH: BUY 10%\nthis line is garbage")
	saver := &memSaver{}
	mem := &memJournal{}

	r := newRunner(t, acct, p, o, saver, mem)
	res, err := r.Round(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"BTC": 104, "SOL": 24}, res.Prices)
	assert.Empty(t, res.Triggers)
	assert.Equal(t, 1, res.Discarded)
	assert.True(t, res.Executed())
	assert.Equal(t, 1, res.Fills)
	assert.True(t, res.Time.Equal(t0))

	require.Len(t, res.Decisions, 3)
	assert.Equal(t, "BTC", res.Decisions[0].Instrument)
	assert.True(t, res.Decisions[0].Applied)
	assert.Equal(t, "ETH", res.Decisions[1].Instrument)
	assert.True(t, res.Decisions[1].Skipped)
	assert.Equal(t, "SOL", res.Decisions[2].Instrument)
	assert.True(t, res.Decisions[2].Applied)

	long := acct.Position("BTC", ledger.Long)
	require.NotNil(t, long)
	assert.InDelta(t, 5000.0/104, long.Amount, 1e-12)
	assert.Equal(t, 90.0, *long.StopLoss)
	assert.Equal(t, 200.0, *long.TakeProfit)
	assert.Nil(t, acct.Holding("ETH"))

	require.Len(t, acct.History, 2)
	assert.True(t, strings.HasPrefix(acct.History[0], "[PAPER] OPENED LONG"))
	assert.Equal(t, "[PAPER] HELD SOL at 24", acct.History[1])

	assert.Equal(t, 1, saver.saves)
	assert.Same(t, acct, saver.last)

	require.Len(t, mem.fills, 1)
	assert.Equal(t, res.RunID, mem.fills[0].RunID)
	require.Len(t, mem.equity, 1)
	assert.InDelta(t, res.Snapshot.Equity(), mem.equity[0].Equity, 1e-9)
	assert.NoError(t, acct.Check())
}

func TestRoundTriggersBeforeOracle(t *testing.T) {
	t.Parallel()

	acct := ledger.NewAccount(10000, true, "BTC", "SOL")
	x := ledger.NewExecutor()
	require.True(t, x.OpenLong(acct, "BTC", 110, action.OpenLong{Percent: 0.5, StopLoss: ptr(105)}, ledger.TagPaper))

	var seen bool
	o := oracle.Func(func(_ context.Context, req oracle.Request) (string, error) {
		seen = true
		assert.False(t, req.Account.Position("BTC", ledger.Long).Open(), "stop must fire before the oracle is asked")
		return "BTC: HOLD", nil
	})

	r := newRunner(t, acct, market.StaticProvider{"BTC": ramp(100, 3), "SOL": ramp(20, 3)}, o, nil, nil)
	res, err := r.Round(context.Background())
	require.NoError(t, err)
	assert.True(t, seen)

	require.Len(t, res.Triggers, 1)
	assert.Equal(t, ledger.ReasonStopLoss, res.Triggers[0].Reason)
	assert.False(t, res.Executed())
	assert.InDelta(t, (102.0-110)*(5000.0/110), acct.RealizedPL, 1e-9)
}

func TestRoundWithoutVolume(t *testing.T) {
	t.Parallel()

	o := oracle.Func(func(_ context.Context, req oracle.Request) (string, error) {
		assert.False(t, req.UseVolume)
		for _, s := range req.Histories {
			assert.Empty(t, s.Volumes())
		}
		return "", nil
	})
	r, err := New(Options{
		Account:     ledger.NewAccount(100, true),
		Provider:    market.StaticProvider{"BTC": ramp(100, 3)},
		Oracle:      o,
		Instruments: []string{"BTC"},
	})
	require.NoError(t, err)

	res, err := r.Round(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Decisions)
}

func TestRoundOracleErrorDoesNotSave(t *testing.T) {
	t.Parallel()

	boom := errors.New("model offline")
	saver := &memSaver{}
	o := oracle.Func(func(context.Context, oracle.Request) (string, error) { return "", boom })

	r := newRunner(t, ledger.NewAccount(100, true), market.StaticProvider{"BTC": ramp(1, 2), "SOL": ramp(1, 2)}, o, saver, nil)
	_, err := r.Round(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, saver.saves)
}

func TestRoundMarketError(t *testing.T) {
	t.Parallel()

	r := newRunner(t, ledger.NewAccount(100, true), market.StaticProvider{"BTC": ramp(1, 2)}, oracle.NewStatic(), nil, nil)
	_, err := r.Round(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market data")
}

func TestRoundSaveError(t *testing.T) {
	t.Parallel()

	saver := &memSaver{err: errors.New("read-only")}
	r := newRunner(t, ledger.NewAccount(100, true), market.StaticProvider{"BTC": ramp(1, 2), "SOL": ramp(1, 2)}, oracle.NewStatic(), saver, nil)
	_, err := r.Round(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save account")
}

func TestRoundRiskPolicyBlocksOpen(t *testing.T) {
	t.Parallel()

	acct := ledger.NewAccount(10000, true, "BTC", "SOL")
	p := market.StaticProvider{"BTC": ramp(100, 5), "SOL": ramp(20, 5)}
	o := oracle.NewStatic("BTC: BUY_LONG 50%\nSOL: BUY_LONG 10% 23 30")

	r, err := New(Options{
		Account:     acct,
		Provider:    p,
		Oracle:      o,
		Instruments: []string{"BTC", "SOL"},
		Policy:      risk.Policy{RequireStop: true},
		Now:         func() time.Time { return t0 },
	})
	require.NoError(t, err)

	res, err := r.Round(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Decisions, 2)
	assert.False(t, res.Decisions[0].Applied)
	assert.Contains(t, res.Decisions[0].Blocked, "NO_STOP")
	assert.True(t, res.Decisions[1].Applied)
	assert.Empty(t, res.Decisions[1].Blocked)

	assert.False(t, acct.Position("BTC", ledger.Long).Open())
	assert.True(t, acct.Position("SOL", ledger.Long).Open())
	assert.Equal(t, 1, res.Fills)
}
