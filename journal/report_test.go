package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktestReportSummarize(t *testing.T) {
	t.Parallel()

	r := &BacktestReport{StartEquity: 1000, EndEquity: 1100}
	fills := []FillRecord{
		{Action: "OPEN"},
		{Action: "CLOSE", RealizedPL: 50},
		{Action: "CLOSE", RealizedPL: -20},
		{Action: "SELL", RealizedPL: 10},
		{Action: "BUY"},
	}
	equity := []EquitySnapshot{{Equity: 1000}, {Equity: 1200}, {Equity: 900}, {Equity: 1100}}
	r.Summarize(fills, equity)

	assert.Equal(t, 5, r.Fills)
	assert.Equal(t, 2, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.InDelta(t, 2.0/3.0, r.WinRate, 1e-9)
	assert.InDelta(t, 100, r.NetPL, 1e-9)
	assert.InDelta(t, 10, r.ReturnPct, 1e-9)
	assert.InDelta(t, 25, r.MaxDDPct, 1e-9)
}

func TestBacktestReportOrg(t *testing.T) {
	t.Parallel()

	r := &BacktestReport{
		RunID:       "RUN1",
		Created:     time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		Interval:    "1h",
		Instruments: []string{"BTC", "SOL"},
		Start:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		StartEquity: 20000,
		EndEquity:   20100,
		NetPL:       100,
		WinRate:     0.5,
		History:     []string{"[PAPER] HELD BTC at 1"},
	}

	out, err := r.Org()
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: BTC, SOL 1h")
	assert.Contains(t, out, ":RUN_ID:       RUN1")
	assert.Contains(t, out, ":MODEL:        (static)")
	assert.Contains(t, out, ":INSTRUMENTS:  BTC SOL")
	assert.Contains(t, out, ":START_DATE:   2025-01-01 00:00")
	assert.Contains(t, out, ":WIN_RATE:     50.00")
	assert.Contains(t, out, ":CREATED:      [2025-01-02 Thu 03:04]")
	assert.Contains(t, out, "** Recent History\n- [PAPER] HELD BTC at 1")

	path := filepath.Join(t.TempDir(), "report.org")
	require.NoError(t, r.WriteOrg(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}
