package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFillOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	rec := sampleFill("01HX0000000000000000ABCDEF", at)
	rec.TakeProfit = ptr(70000)

	result := FormatFillOrg(rec)

	assert.Contains(t, result, "** Fill: BTC OPEN LONG (00ABCDEF)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":FILL_ID: 01HX0000000000000000ABCDEF")
	assert.Contains(t, result, ":ID: 01HX0000000000000000ABCDEF")
	assert.Contains(t, result, ":RUN_ID: RUN1")
	assert.Contains(t, result, ":TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":AMOUNT: 0.083333")
	assert.Contains(t, result, ":PRICE: 60000.00")
	assert.Contains(t, result, ":MARGIN: 5000.00")
	assert.Contains(t, result, ":REALIZED_PL: 0.00")
	assert.Contains(t, result, ":STOP_LOSS: 58000.00")
	assert.Contains(t, result, ":TAKE_PROFIT: 70000.00")
	assert.Contains(t, result, ":TAG: [PAPER]")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Notes")
}

func TestFormatFillOrgOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	result := FormatFillOrg(FillRecord{
		FillID:     "short",
		Instrument: "SOL",
		Side:       "SPOT",
		Action:     "SELL",
		Amount:     1,
		Price:      150,
		RealizedPL: -12.345,
		Tag:        "[LIVE]",
	})

	assert.Contains(t, result, "** Fill: SOL SELL SPOT (short)")
	assert.Contains(t, result, ":REALIZED_PL: -12.35")
	assert.NotContains(t, result, ":RUN_ID:")
	assert.NotContains(t, result, ":MARGIN:")
	assert.NotContains(t, result, ":STOP_LOSS:")
	assert.NotContains(t, result, ":TAKE_PROFIT:")
}

func TestFormatFillsOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	result := FormatFillsOrg([]FillRecord{sampleFill("A", at), sampleFill("B", at)})

	assert.Equal(t, 2, strings.Count(result, "** Fill:"))
	assert.Contains(t, result, "\n\n\n** Fill: BTC OPEN LONG (B)")
	assert.Empty(t, FormatFillsOrg(nil))
}
