package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	fillHeader   = []string{"fill_id", "run_id", "time", "instrument", "side", "action", "amount", "price", "cost_basis", "margin", "realized_pl", "stop_loss", "take_profit", "tag"}
	equityHeader = []string{"time", "run_id", "cash", "spot_cost", "margin_available", "margin_used", "realized_pl", "unrealized_pl", "equity"}
)

type CSV struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

var _ Journal = (*CSV)(nil)

// NewCSV truncates both files and writes their headers.
func NewCSV(fillsPath, equityPath string) (*CSV, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	j := &CSV{fills: csv.NewWriter(ff), equity: csv.NewWriter(ef), ff: ff, ef: ef}
	if err := j.write(j.fills, fillHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordFill(r FillRecord) error {
	return j.write(j.fills, []string{
		r.FillID,
		r.RunID,
		r.Time.UTC().Format(time.RFC3339),
		r.Instrument,
		r.Side,
		r.Action,
		f(r.Amount),
		f(r.Price),
		f(r.CostBasis),
		f(r.Margin),
		f(r.RealizedPL),
		optional(r.StopLoss),
		optional(r.TakeProfit),
		r.Tag,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		e.RunID,
		f(e.Cash),
		f(e.SpotCost),
		f(e.MarginAvailable),
		f(e.MarginUsed),
		f(e.RealizedPL),
		f(e.UnrealizedPL),
		f(e.Equity),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.fills.Flush()
	j.equity.Flush()
	return errors.Join(j.fills.Error(), j.equity.Error(), j.ff.Close(), j.ef.Close())
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func optional(p *float64) string {
	if p == nil {
		return ""
	}
	return f(*p)
}
