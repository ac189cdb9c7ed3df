package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/traderagent/internal/id"
	"github.com/rustyeddy/traderagent/internal/logger"
	"github.com/rustyeddy/traderagent/journal"
	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
)

const DefaultWarmup = 30

var ErrNotEnoughHistory = errors.New("runner: not enough history for backtest")

type BacktestOptions struct {
	// Warmup is the first bar traded; earlier bars are only history.
	Warmup int
	// Progress, if set, is called after every step.
	Progress func(done, total int)
}

type BacktestResult struct {
	RunID       string
	Start, End  time.Time
	Steps       int
	Fills       int
	Triggers    int
	Discarded   int
	StartEquity float64
	// Prices are the closing prices of the last bar.
	Prices map[string]float64
	Final  ledger.Snapshot
	Equity []journal.EquitySnapshot
	// Records holds every fill of the run, journaled or not.
	Records []journal.FillRecord
}

// Backtest fetches history once and replays it bar by bar from the warmup
// index. At bar i the oracle sees only bars before i and trades at the
// price of bar i. The account is saved once at the end.
func (r *Runner) Backtest(ctx context.Context, opts BacktestOptions) (*BacktestResult, error) {
	warmup := opts.Warmup
	if warmup <= 0 {
		warmup = DefaultWarmup
	}

	hist, err := market.FetchAll(ctx, r.provider, r.instruments)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	hist = r.prepare(hist)

	n := market.MinLen(hist)
	if n <= warmup {
		return nil, fmt.Errorf("%w: %d bars, warmup %d", ErrNotEnoughHistory, n, warmup)
	}
	clock := hist[r.instruments[0]]

	res := &BacktestResult{
		RunID: id.New(),
		Start: clock[warmup].Time,
		End:   clock[n-1].Time,
	}
	_, startPrices := market.Window(hist, warmup)
	res.StartEquity = ledger.TakeSnapshot(r.acct, startPrices, res.Start).Equity()

	total := n - warmup
	logger.Infof("backtest %s: %d steps over %v", res.RunID, total, r.instruments)

	for i := warmup; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		past, prices := market.Window(hist, i)

		step, err := r.step(ctx, res.RunID, past, prices, clock[i].Time)
		if step != nil {
			res.Fills += step.Fills
			res.Records = append(res.Records, step.Records...)
			res.Triggers += len(step.Triggers)
			res.Discarded += step.Discarded
		}
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i, err)
		}
		res.Steps++

		eq := journal.FromSnapshot(step.Snapshot, res.RunID)
		res.Equity = append(res.Equity, eq)
		if err := r.journal.RecordEquity(eq); err != nil {
			logger.Warnf("journal: record equity: %v", err)
		}
		if opts.Progress != nil {
			opts.Progress(i-warmup+1, total)
		}
	}

	res.Prices = market.LatestPrices(hist)
	res.Final = ledger.TakeSnapshot(r.acct, res.Prices, res.End)
	if err := r.save(); err != nil {
		return res, err
	}
	return res, nil
}

// ProgressBar renders the thirty character progress bar shown during
// backtests.
func ProgressBar(done, total int) string {
	const width = 30
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	filled = min(max(filled, 0), width)
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '_'
		}
	}
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}
