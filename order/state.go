package order

import "fmt"

// State is one step in an order's lifecycle.
type State string

const (
	New             State = "NEW"
	Placed          State = "PLACED"
	PartiallyFilled State = "PARTIALLY_FILLED"
	Filled          State = "FILLED"
	Closed          State = "CLOSED"
	Rejected        State = "REJECTED"
	Expired         State = "EXPIRED"
	Cancelled       State = "CANCELLED"
)

// legal is the complete transition table. Anything not listed fails with
// IllegalTransitionError.
var legal = map[State][]State{
	New:             {Placed},
	Placed:          {PartiallyFilled, Filled, Rejected, Expired, Cancelled},
	PartiallyFilled: {Filled, Cancelled},
	Filled:          {Closed},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case Closed, Rejected, Expired, Cancelled:
		return true
	}
	return false
}

func (s State) canTransitionTo(to State) bool {
	for _, next := range legal[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError is a consistency fault: the caller asked for a
// transition the lifecycle does not permit.
type IllegalTransitionError struct {
	OrderID string
	From    State
	To      State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}
