// Package oracle turns market data and account state into the line-based
// trading text the action decoder reads.
package oracle

import (
	"context"
	"errors"
	"sync"

	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
)

var (
	ErrNoAPIKey      = errors.New("oracle: api key is not set")
	ErrEmptyResponse = errors.New("oracle: empty response")
)

// Request is everything an oracle may look at for one round.
type Request struct {
	Histories map[string]market.Series
	Account   *ledger.Account
	UseVolume bool
}

// Oracle produces raw instruction text such as "BTC: BUY_LONG 50% 58000 70000".
type Oracle interface {
	Decide(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Decide(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Static replays canned responses in order and then repeats the last one.
// With no responses it answers with an empty string, which decodes to
// nothing.
type Static struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func NewStatic(responses ...string) *Static {
	return &Static{responses: responses}
}

func (s *Static) Decide(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.responses) == 0 {
		return "", nil
	}
	i := min(s.calls-1, len(s.responses)-1)
	return s.responses[i], nil
}

// Calls returns how many times Decide has been called.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
