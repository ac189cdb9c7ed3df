package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{fillHeader}, readCSV(t, fillsPath))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, equityPath))
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	j, err := NewCSV(fillsPath, filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.RecordFill(sampleFill("F1", at)))
	require.NoError(t, j.Close())

	rows := readCSV(t, fillsPath)
	require.Len(t, rows, 2)
	want := []string{
		"F1", "RUN1", "2024-01-02T03:04:05Z", "BTC", "LONG", "OPEN",
		"0.083333", "60000.000000", "60000.000000", "5000.000000", "0.000000",
		"58000.000000", "", "[PAPER]",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	equityPath := filepath.Join(dir, "equity.csv")
	j, err := NewCSV(filepath.Join(dir, "fills.csv"), equityPath)
	require.NoError(t, err)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: ts, RunID: "R", Cash: 1000.1, Equity: 999.9}))
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-02-03T03:05:06Z", rows[1][0])
	assert.Equal(t, "R", rows[1][1])
	assert.Equal(t, "1000.100000", rows[1][2])
	assert.Equal(t, "999.900000", rows[1][8])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "fills.csv"), "equity.csv")
	assert.Error(t, err)
}
