package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordTransition appends one state change. The AUTOINCREMENT seq column
// preserves insertion order per order id.
func (j *SQLite) RecordTransition(r TransitionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO transitions
		(order_id, trade_id, symbol, from_state, to_state, at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, r.TradeID, r.Symbol, string(r.From), string(r.To), r.At, r.Payload,
	)
	return err
}

func (j *SQLite) RecordTrade(r TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, lots, risk_amount, realized_pnl, open_time, close_time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.Symbol, r.Side, r.Lots, r.RiskAmount,
		r.RealizedPnL, r.OpenTime, r.CloseTime, r.Reason,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
