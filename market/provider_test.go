package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct {
	StaticProvider
	fail string
}

func (p failingProvider) History(ctx context.Context, instrument string) (Series, error) {
	if instrument == p.fail {
		return nil, errors.New("boom")
	}
	return p.StaticProvider.History(ctx, instrument)
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := StaticProvider{
		"BTC": {{Time: t0, Price: 100}},
		"SOL": {{Time: t0, Price: 20}},
		"ETH": {{Time: t0, Price: 3000}},
	}

	hist, err := FetchAll(context.Background(), p, []string{"BTC", "SOL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "SOL"}, Symbols(hist))
	assert.Equal(t, 20.0, hist["SOL"][0].Price)
}

func TestFetchAllError(t *testing.T) {
	t.Parallel()

	p := failingProvider{StaticProvider: StaticProvider{"BTC": {}}, fail: "SOL"}
	_, err := FetchAll(context.Background(), p, []string{"BTC", "SOL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch SOL: boom")

	_, err = FetchAll(context.Background(), StaticProvider{}, []string{"DOGE"})
	assert.EqualError(t, err, `fetch DOGE: no history for "DOGE"`)
}
