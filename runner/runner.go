// Package runner drives trading rounds: fetch prices, enforce stops, ask
// the oracle, apply its instructions and persist the account.
package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rustyeddy/traderagent/action"
	"github.com/rustyeddy/traderagent/internal/id"
	"github.com/rustyeddy/traderagent/internal/logger"
	"github.com/rustyeddy/traderagent/journal"
	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
	"github.com/rustyeddy/traderagent/oracle"
	"github.com/rustyeddy/traderagent/risk"
)

// Saver persists the account at the end of a round.
type Saver interface {
	Save(*ledger.Account) error
}

type Options struct {
	Account     *ledger.Account
	Provider    market.Provider
	Oracle      oracle.Oracle
	Saver       Saver           // nil skips persistence
	Journal     journal.Journal // nil discards fills and equity
	Instruments []string
	UseVolume   bool
	Policy      risk.Policy // zero value allows every open
	Now         func() time.Time
}

// Runner owns one account for the life of the process.
type Runner struct {
	acct        *ledger.Account
	exec        *ledger.Executor
	provider    market.Provider
	oracle      oracle.Oracle
	saver       Saver
	journal     journal.Journal
	instruments []string
	useVolume   bool
	policy      risk.Policy
	now         func() time.Time
}

func New(o Options) (*Runner, error) {
	if o.Account == nil {
		return nil, errors.New("runner: account is required")
	}
	if o.Provider == nil {
		return nil, errors.New("runner: market provider is required")
	}
	if o.Oracle == nil {
		return nil, errors.New("runner: oracle is required")
	}
	if len(o.Instruments) == 0 {
		return nil, errors.New("runner: no instruments")
	}
	j := o.Journal
	if j == nil {
		j = journal.Nop{}
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	syms := slices.Clone(o.Instruments)
	slices.Sort(syms)

	return &Runner{
		acct:        o.Account,
		exec:        ledger.NewExecutor(),
		provider:    o.Provider,
		oracle:      o.Oracle,
		saver:       o.Saver,
		journal:     j,
		instruments: syms,
		useVolume:   o.UseVolume,
		policy:      o.Policy,
		now:         now,
	}, nil
}

func (r *Runner) Account() *ledger.Account { return r.acct }

// Decision is one decoded instruction and what became of it.
type Decision struct {
	Instrument  string
	Instruction action.Instruction
	Price       float64
	Applied     bool
	// Skipped is set when no price was known for the instrument.
	Skipped bool
	// Blocked holds the policy violations that stopped an open.
	Blocked string
}

// RoundResult reports one round.
type RoundResult struct {
	RunID     string
	Time      time.Time
	Prices    map[string]float64
	Triggers  []ledger.Trigger
	Raw       string
	Discarded int
	Decisions []Decision
	Fills     int
	Snapshot  ledger.Snapshot
	// Records holds every fill of the round, journaled or not.
	Records []journal.FillRecord
}

// Executed reports whether any decoded instruction other than a hold went
// through. Risk triggers do not count.
func (res *RoundResult) Executed() bool {
	for _, d := range res.Decisions {
		if d.Applied {
			if _, hold := d.Instruction.(action.Hold); !hold {
				return true
			}
		}
	}
	return false
}

// Round runs one live or paper round against the latest market data and
// saves the account.
func (r *Runner) Round(ctx context.Context) (*RoundResult, error) {
	runID := id.New()

	hist, err := market.FetchAll(ctx, r.provider, r.instruments)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	hist = r.prepare(hist)
	prices := market.LatestPrices(hist)
	for _, sym := range market.Symbols(prices) {
		logger.Infof("price %s: %s", sym, fmtMoney(prices[sym]))
	}

	res, err := r.step(ctx, runID, hist, prices, r.now())
	if err != nil {
		return res, err
	}

	if err := r.journal.RecordEquity(journal.FromSnapshot(res.Snapshot, runID)); err != nil {
		logger.Warnf("journal: record equity: %v", err)
	}
	if err := r.save(); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Runner) prepare(hist map[string]market.Series) map[string]market.Series {
	if r.useVolume {
		return hist
	}
	out := make(map[string]market.Series, len(hist))
	for sym, s := range hist {
		out[sym] = s.WithoutVolume()
	}
	return out
}

// step enforces stops, asks the oracle and applies its instructions at the
// given prices. Instruments are processed in sorted order.
func (r *Runner) step(ctx context.Context, runID string, hist map[string]market.Series, prices map[string]float64, at time.Time) (*RoundResult, error) {
	res := &RoundResult{RunID: runID, Time: at, Prices: prices}

	listener := journal.NewListener(r.journal, runID)
	r.exec.SetFillListener(listener)
	r.exec.SetClock(func() time.Time { return at })
	defer r.exec.SetFillListener(nil)

	res.Triggers = r.exec.CheckTriggers(r.acct, prices)

	raw, err := r.oracle.Decide(ctx, oracle.Request{
		Histories: hist,
		Account:   r.acct,
		UseVolume: r.useVolume,
	})
	if err != nil {
		res.Fills, res.Records = listener.Count(), listener.Records()
		return res, fmt.Errorf("oracle: %w", err)
	}
	res.Raw = raw
	logger.InfoBlock(raw)

	decoded := action.Decode(raw)
	res.Discarded = decoded.Discarded
	if decoded.Discarded > 0 {
		logger.Warnf("discarded %d malformed instruction line(s)", decoded.Discarded)
	}

	tag := r.acct.Tag()
	for _, sym := range decoded.Symbols() {
		in := decoded.Instructions[sym]
		price, ok := prices[sym]
		if !ok {
			logger.Warnf("no price for %s, skipping %s", sym, action.Format(in))
			res.Decisions = append(res.Decisions, Decision{Instrument: sym, Instruction: in, Skipped: true})
			continue
		}
		if reason, ok := r.check(sym, price, in); !ok {
			logger.Warnf("%s: %s blocked by risk policy: %s", sym, action.Format(in), reason)
			res.Decisions = append(res.Decisions, Decision{Instrument: sym, Instruction: in, Price: price, Blocked: reason})
			continue
		}
		applied := r.exec.Apply(r.acct, sym, price, in, tag)
		logger.Infof("%s: %s applied=%t", sym, action.Format(in), applied)
		res.Decisions = append(res.Decisions, Decision{
			Instrument:  sym,
			Instruction: in,
			Price:       price,
			Applied:     applied,
		})
	}

	res.Fills, res.Records = listener.Count(), listener.Records()
	if n := listener.Failed(); n > 0 {
		logger.Warnf("journal: %d of %d fills not written: %v", n, res.Fills, listener.Err())
	}
	res.Snapshot = ledger.TakeSnapshot(r.acct, prices, at)
	return res, nil
}

// check runs opens past the risk policy.
func (r *Runner) check(sym string, price float64, in action.Instruction) (string, bool) {
	if !r.policy.Enabled() {
		return "", true
	}
	intent, ok := risk.IntentFor(r.acct, sym, price, in)
	if !ok {
		return "", true
	}
	d := risk.Evaluate(r.policy, intent, r.acct)
	return d.Reason(), d.Allowed
}

func (r *Runner) save() error {
	if r.saver == nil {
		return nil
	}
	if err := r.saver.Save(r.acct); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func fmtMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
