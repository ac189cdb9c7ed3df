package risk

import "math"

// PlannedRisk is the loss in USD if the stop-loss is hit. A stop on the
// wrong side of entry still counts as a loss of the full distance.
func PlannedRisk(amount, entry, stop float64) float64 {
	return math.Abs(entry-stop) * amount
}

// RR is reward over risk. It is zero when there is no risk distance.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

// RiskPct expresses a loss as a fraction of pool. An empty pool is
// infinite risk.
func RiskPct(loss, pool float64) float64 {
	if pool <= 0 {
		return math.Inf(1)
	}
	return loss / pool
}
