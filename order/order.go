// Package order tracks per-order lifecycle with an explicit transition
// table and a write-once transition log for journaling.
package order

import (
	"time"

	"github.com/rustyeddy/riskgate/market"
)

// Order is one execution attempt against the venue. Many orders may map to
// a single trade (open plus partial close), but the order id itself is
// stable across submission retries.
type Order struct {
	ID      string
	TradeID string
	Symbol  string
	Side    market.Side
	Lots    float64

	StopLoss   float64
	TakeProfit float64
	Type       market.OrderType

	// IdempotencyKey is derived from the trade intent, not wall-clock, so
	// retried submissions reuse it.
	IdempotencyKey string
	AttemptCount   int

	state       State
	transitions []Transition
	journaled   int // transitions[:journaled] have been handed to the journal
}

// Transition is one timestamped lifecycle step.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// NewOrder constructs an order in state NEW.
func NewOrder(id, tradeID, symbol string, side market.Side, lots float64) *Order {
	return &Order{
		ID:      id,
		TradeID: tradeID,
		Symbol:  symbol,
		Side:    side,
		Lots:    lots,
		Type:    market.Market,
		state:   New,
	}
}

// State returns the current lifecycle state.
func (o *Order) State() State {
	return o.state
}

// Transition moves the order to the next state, appending exactly one
// timestamped entry to the log. Illegal requests leave the order untouched.
func (o *Order) Transition(to State, at time.Time) error {
	if !o.state.canTransitionTo(to) {
		return &IllegalTransitionError{OrderID: o.ID, From: o.state, To: to}
	}
	o.transitions = append(o.transitions, Transition{From: o.state, To: to, At: at})
	o.state = to
	return nil
}

// Transitions returns the full transition log in order.
func (o *Order) Transitions() []Transition {
	out := make([]Transition, len(o.transitions))
	copy(out, o.transitions)
	return out
}

// Unjournaled returns the log entries not yet handed to the journal. Each
// entry is surfaced here at most once the caller confirms with
// MarkJournaled, which is how the at-most-once journal write is enforced
// without journal-side dedup.
func (o *Order) Unjournaled() []Transition {
	out := make([]Transition, len(o.transitions)-o.journaled)
	copy(out, o.transitions[o.journaled:])
	return out
}

// MarkJournaled advances the journal cursor past n entries.
func (o *Order) MarkJournaled(n int) {
	o.journaled += n
	if o.journaled > len(o.transitions) {
		o.journaled = len(o.transitions)
	}
}
