package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

func positionPL(side Side, avgPrice, price, amount float64) float64 {
	if side == Short {
		return (avgPrice - price) * amount
	}
	return (price - avgPrice) * amount
}

// Mark is the mark-to-market of one open book at a price.
type Mark struct {
	Instrument string
	Side       Side
	Amount     float64
	AvgPrice   float64
	Price      float64
	PnL        float64
}

// Marks returns a mark for every open long, short and spot book whose
// instrument has a price, in sorted instrument order.
func Marks(acct *Account, prices map[string]float64) []Mark {
	var out []Mark
	for _, sym := range sortedSymbols(prices) {
		price := prices[sym]
		if !validPrice(price) {
			continue
		}
		for _, side := range []Side{Long, Short} {
			pos := acct.Position(sym, side)
			if pos == nil || !pos.Open() {
				continue
			}
			out = append(out, Mark{
				Instrument: sym,
				Side:       side,
				Amount:     pos.Amount,
				AvgPrice:   pos.AvgPrice,
				Price:      price,
				PnL:        positionPL(side, pos.AvgPrice, price, pos.Amount),
			})
		}
		if h := acct.Holding(sym); h != nil && h.Amount > 0 {
			out = append(out, Mark{
				Instrument: sym,
				Side:       Spot,
				Amount:     h.Amount,
				AvgPrice:   h.AvgPrice,
				Price:      price,
				PnL:        positionPL(Long, h.AvgPrice, price, h.Amount),
			})
		}
	}
	return out
}

// UnrealizedPL sums the mark-to-market PnL of every open book at prices and
// rounds the total to cents. Instruments without a price are skipped.
func UnrealizedPL(acct *Account, prices map[string]float64) float64 {
	var total float64
	for _, m := range Marks(acct, prices) {
		total += m.PnL
	}
	return Round2(total)
}

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
