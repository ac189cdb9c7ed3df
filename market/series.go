package market

import (
	"slices"
	"time"
)

// Point is one closed bar: the close price and traded volume.
type Point struct {
	Time   time.Time
	Price  float64
	Volume float64
}

// Series is a price history ordered oldest first.
type Series []Point

// Latest returns the most recent point.
func (s Series) Latest() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// Prices returns the close prices in order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Volumes returns the non-zero volumes in order. Sources without volume
// data report zero, which carries no information.
func (s Series) Volumes() []float64 {
	var out []float64
	for _, p := range s {
		if p.Volume > 0 {
			out = append(out, p.Volume)
		}
	}
	return out
}

// WithoutVolume returns a copy of s with every volume zeroed.
func (s Series) WithoutVolume() Series {
	out := slices.Clone(s)
	for i := range out {
		out[i].Volume = 0
	}
	return out
}

// LatestPrices returns the last price of each non-empty series.
func LatestPrices(hist map[string]Series) map[string]float64 {
	out := make(map[string]float64, len(hist))
	for sym, s := range hist {
		if p, ok := s.Latest(); ok {
			out[sym] = p.Price
		}
	}
	return out
}

// Window returns, for each series long enough, the history strictly before
// index i and the price at i. It is the view a decision at bar i is allowed
// to see.
func Window(hist map[string]Series, i int) (map[string]Series, map[string]float64) {
	past := make(map[string]Series, len(hist))
	prices := make(map[string]float64, len(hist))
	if i < 0 {
		return past, prices
	}
	for sym, s := range hist {
		if len(s) <= i {
			continue
		}
		past[sym] = s[:i]
		prices[sym] = s[i].Price
	}
	return past, prices
}

// MinLen returns the length of the shortest series, or 0 when hist is empty.
func MinLen(hist map[string]Series) int {
	n := -1
	for _, s := range hist {
		if n < 0 || len(s) < n {
			n = len(s)
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// Symbols returns the keys of hist in sorted order.
func Symbols[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
