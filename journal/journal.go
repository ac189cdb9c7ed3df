package journal

import (
	"slices"
	"sync"
	"time"

	"github.com/rustyeddy/traderagent/internal/logger"
	"github.com/rustyeddy/traderagent/ledger"
)

// FillRecord is one executed trade as stored in the journal.
type FillRecord struct {
	FillID     string
	RunID      string
	Time       time.Time
	Instrument string
	Side       string
	Action     string
	Amount     float64
	Price      float64
	CostBasis  float64
	Margin     float64
	RealizedPL float64
	StopLoss   *float64
	TakeProfit *float64
	Tag        string
}

// EquitySnapshot is the account value at the end of a round.
type EquitySnapshot struct {
	Time            time.Time
	RunID           string
	Cash            float64
	SpotCost        float64
	MarginAvailable float64
	MarginUsed      float64
	RealizedPL      float64
	UnrealizedPL    float64
	Equity          float64
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromFill converts an executor fill into a journal record.
func FromFill(f ledger.Fill, runID string) FillRecord {
	return FillRecord{
		FillID:     f.ID,
		RunID:      runID,
		Time:       f.Time,
		Instrument: f.Instrument,
		Side:       string(f.Side),
		Action:     f.Action,
		Amount:     f.Amount,
		Price:      f.Price,
		CostBasis:  f.CostBasis,
		Margin:     f.Margin,
		RealizedPL: f.RealizedPL,
		StopLoss:   f.StopLoss,
		TakeProfit: f.TakeProfit,
		Tag:        f.Tag,
	}
}

// FromSnapshot converts an account snapshot into a journal record.
func FromSnapshot(s ledger.Snapshot, runID string) EquitySnapshot {
	return EquitySnapshot{
		Time:            s.Time,
		RunID:           runID,
		Cash:            s.Cash,
		SpotCost:        s.SpotCost,
		MarginAvailable: s.Available,
		MarginUsed:      s.Used,
		RealizedPL:      s.RealizedPL,
		UnrealizedPL:    s.UnrealizedPL,
		Equity:          s.Equity(),
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error       { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

// Listener records executor fills into a Journal and keeps a copy of
// every record. Write failures are logged and counted, and the first one
// is kept for Err; trading is never blocked by the journal.
type Listener struct {
	j     Journal
	runID string

	mu      sync.Mutex
	err     error
	failed  int
	records []FillRecord
}

var _ ledger.FillListener = (*Listener)(nil)

func NewListener(j Journal, runID string) *Listener {
	return &Listener{j: j, runID: runID}
}

func (l *Listener) OnFill(f ledger.Fill) {
	rec := FromFill(f, l.runID)
	err := l.j.RecordFill(rec)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if err != nil {
		logger.Warnf("journal: record fill %s: %v", f.ID, err)
		l.failed++
		if l.err == nil {
			l.err = err
		}
	}
}

// Err returns the first write error, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Count returns how many fills the executor reported, written or not.
func (l *Listener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Failed returns how many fills the journal could not write.
func (l *Listener) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Records returns a copy of every fill seen, in order.
func (l *Listener) Records() []FillRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}
