package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fillColumns = `fill_id, run_id, time, instrument, side, action, amount, price, cost_basis, margin, realized_pl, stop_loss, take_profit, tag`

type scanner interface {
	Scan(dest ...any) error
}

func scanFill(s scanner) (FillRecord, error) {
	var (
		rec    FillRecord
		sl, tp sql.NullFloat64
	)
	err := s.Scan(
		&rec.FillID,
		&rec.RunID,
		&rec.Time,
		&rec.Instrument,
		&rec.Side,
		&rec.Action,
		&rec.Amount,
		&rec.Price,
		&rec.CostBasis,
		&rec.Margin,
		&rec.RealizedPL,
		&sl,
		&tp,
		&rec.Tag,
	)
	if err != nil {
		return FillRecord{}, err
	}
	rec.StopLoss = fromNullable(sl)
	rec.TakeProfit = fromNullable(tp)
	return rec, nil
}

// GetFill returns a single fill by ID.
func (j *SQLite) GetFill(fillID string) (FillRecord, error) {
	row := j.db.QueryRow(`SELECT `+fillColumns+` FROM fills WHERE fill_id = ?`, fillID)

	rec, err := scanFill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FillRecord{}, fmt.Errorf("fill %q not found", fillID)
		}
		return FillRecord{}, err
	}
	return rec, nil
}

// ListFillsBetween returns fills whose time is within [start, end).
func (j *SQLite) ListFillsBetween(start, end time.Time) ([]FillRecord, error) {
	return j.listFills(`
		SELECT `+fillColumns+`
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, fill_id ASC`, start.UTC(), end.UTC())
}

// ListFillsByRun returns every fill recorded under runID in time order.
func (j *SQLite) ListFillsByRun(runID string) ([]FillRecord, error) {
	return j.listFills(`
		SELECT `+fillColumns+`
		FROM fills
		WHERE run_id = ?
		ORDER BY time ASC, fill_id ASC`, runID)
}

func (j *SQLite) listFills(query string, args ...any) ([]FillRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		rec, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots whose time is within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, run_id, cash, spot_cost, margin_available, margin_used, realized_pl, unrealized_pl, equity
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.Time,
			&rec.RunID,
			&rec.Cash,
			&rec.SpotCost,
			&rec.MarginAvailable,
			&rec.MarginUsed,
			&rec.RealizedPL,
			&rec.UnrealizedPL,
			&rec.Equity,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
