// Package journal records order transitions and settled trades to CSV or
// SQLite, append-only.
package journal

import (
	"time"

	"github.com/rustyeddy/riskgate/order"
)

// TransitionRecord is the authoritative write-once record of one order
// state change. The engine hands each transition over exactly once; the
// journal only appends.
type TransitionRecord struct {
	OrderID string
	TradeID string
	Symbol  string
	From    order.State
	To      order.State
	At      time.Time
	Payload string // free-form context, usually compact JSON
}

// TradeRecord is one settled trade.
type TradeRecord struct {
	TradeID     string
	Symbol      string
	Side        string
	Lots        float64
	RiskAmount  float64
	RealizedPnL float64
	OpenTime    time.Time
	CloseTime   time.Time
	Reason      string
}

// Journal is an append-only record keeper. Implementations preserve
// insertion order per order id.
type Journal interface {
	RecordTransition(TransitionRecord) error
	RecordTrade(TradeRecord) error
	Close() error
}
