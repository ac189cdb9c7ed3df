package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, run_id, time, instrument, side, action, amount, price, cost_basis, margin, realized_pl, stop_loss, take_profit, tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.RunID, f.Time.UTC(), f.Instrument, f.Side, f.Action,
		f.Amount, f.Price, f.CostBasis, f.Margin, f.RealizedPL,
		nullable(f.StopLoss), nullable(f.TakeProfit), f.Tag,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, run_id, cash, spot_cost, margin_available, margin_used, realized_pl, unrealized_pl, equity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.RunID, e.Cash, e.SpotCost, e.MarginAvailable,
		e.MarginUsed, e.RealizedPL, e.UnrealizedPL, e.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
