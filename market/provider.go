package market

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Provider returns the recent price history of one instrument.
type Provider interface {
	History(ctx context.Context, instrument string) (Series, error)
}

// FetchAll fetches every instrument in parallel. The first error cancels
// the rest and is returned.
func FetchAll(ctx context.Context, p Provider, instruments []string) (map[string]Series, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]Series, len(instruments))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range instruments {
		sym := sym
		g.Go(func() error {
			s, err := p.History(gctx, sym)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", sym, err)
			}
			mu.Lock()
			out[sym] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// StaticProvider serves fixed histories, e.g. loaded from a CSV file.
type StaticProvider map[string]Series

func (p StaticProvider) History(_ context.Context, instrument string) (Series, error) {
	s, ok := p[instrument]
	if !ok {
		return nil, fmt.Errorf("no history for %q", instrument)
	}
	return s, nil
}
