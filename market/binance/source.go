// Package binance serves market.Series from the Binance spot klines
// endpoint.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"github.com/rustyeddy/traderagent/internal/logger"
	"github.com/rustyeddy/traderagent/market"
)

const (
	DefaultBaseURL  = "https://api.binance.com"
	DefaultInterval = "1h"
	DefaultLimit    = 72
	DefaultQuote    = "USDT"

	maxLimit = 1000
)

type Config struct {
	BaseURL  string
	Interval string
	Limit    int
	Quote    string
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	out.Interval = strings.ToLower(strings.TrimSpace(out.Interval))
	if out.Interval == "" {
		out.Interval = DefaultInterval
	}
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	out.Quote = strings.ToUpper(strings.TrimSpace(out.Quote))
	if out.Quote == "" {
		out.Quote = DefaultQuote
	}
	if out.Timeout <= 0 {
		out.Timeout = 15 * time.Second
	}
	return out
}

// Source implements market.Provider. Public market data needs no keys.
type Source struct {
	cfg    Config
	client *gobinance.Client
}

var _ market.Provider = (*Source)(nil)

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := gobinance.NewClient("", "")
	client.BaseURL = final.BaseURL
	client.HTTPClient = &http.Client{Timeout: final.Timeout}
	return &Source{cfg: final, client: client}
}

// Symbol maps an instrument such as "BTC" to its exchange pair "BTCUSDT".
func (s *Source) Symbol(instrument string) string {
	sym := strings.ToUpper(strings.TrimSpace(instrument))
	if strings.HasSuffix(sym, s.cfg.Quote) && len(sym) > len(s.cfg.Quote) {
		return sym
	}
	return sym + s.cfg.Quote
}

// History returns the last Limit closes and volumes, oldest first.
func (s *Source) History(ctx context.Context, instrument string) (market.Series, error) {
	if strings.TrimSpace(instrument) == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	sym := s.Symbol(instrument)

	kls, err := s.client.NewKlinesService().
		Symbol(sym).
		Interval(s.cfg.Interval).
		Limit(s.cfg.Limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", sym, err)
	}

	out := make(market.Series, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		price, err := strconv.ParseFloat(kl.Close, 64)
		if err != nil || price <= 0 {
			logger.Warnf("binance: skipping %s kline at %d: bad close %q", sym, kl.OpenTime, kl.Close)
			continue
		}
		vol, _ := strconv.ParseFloat(kl.Volume, 64)
		out = append(out, market.Point{
			Time:   time.UnixMilli(kl.OpenTime).UTC(),
			Price:  price,
			Volume: vol,
		})
	}
	logger.Debugf("binance: fetched %d %s klines for %s", len(out), s.cfg.Interval, sym)
	return out, nil
}
