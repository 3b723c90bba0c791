package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/riskgate/order"
)

// ListTransitionsByOrder returns an order's transitions in insertion order.
func (j *SQLite) ListTransitionsByOrder(orderID string) ([]TransitionRecord, error) {
	rows, err := j.db.Query(`
		SELECT order_id, trade_id, symbol, from_state, to_state, at, payload
		FROM transitions
		WHERE order_id = ?
		ORDER BY seq ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var from, to string
		if err := rows.Scan(
			&rec.OrderID,
			&rec.TradeID,
			&rec.Symbol,
			&from,
			&to,
			&rec.At,
			&rec.Payload,
		); err != nil {
			return nil, err
		}
		rec.From, rec.To = order.State(from), order.State(to)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetTrade returns a single settled trade by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, symbol, side, lots, risk_amount, realized_pnl, open_time, close_time, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.Lots,
		&rec.RiskAmount,
		&rec.RealizedPnL,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Reason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, lots, risk_amount, realized_pnl, open_time, close_time, reason
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.Symbol,
			&rec.Side,
			&rec.Lots,
			&rec.RiskAmount,
			&rec.RealizedPnL,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
