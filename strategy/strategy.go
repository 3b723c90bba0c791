// Package strategy defines the signal contract between strategies and the
// trade engine. Indicator math lives outside the orchestrator; the engine
// only consumes the signals emitted here.
package strategy

import (
	"context"
	"time"

	"github.com/rustyeddy/riskgate/market"
)

// Signal proposes a new entry. StopDistance is in pips; the engine converts
// it to a currency risk amount with the symbol's pip value.
type Signal struct {
	Symbol       string
	Side         market.Side
	StopDistance float64
	Confidence   float64
	TakeProfit   *float64 // optional price
	At           time.Time
	Tag          string // strategy identity, part of the idempotency key
}

// ExitSignal requests closing an open trade.
type ExitSignal struct {
	TradeID string
	Symbol  string
	Reason  string
}

// Source produces a finite batch of signals per polling cycle. Batches are
// unordered across symbols; the engine treats each signal independently.
type Source interface {
	Poll(ctx context.Context) ([]Signal, []ExitSignal, error)
}
