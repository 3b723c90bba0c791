// Package venue defines the contract the orchestrator needs from a
// brokerage venue. The wire protocol behind it is not this package's
// business; sim and rest provide implementations.
package venue

import (
	"context"
	"time"

	"github.com/rustyeddy/riskgate/market"
)

// Gateway is the venue connectivity surface consumed by the engine. Calls
// may block on network I/O, so every method takes a context and none may be
// called while holding the risk ledger lock.
type Gateway interface {
	AccountSnapshot(ctx context.Context) (Snapshot, error)
	SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error)
	SubmitOrder(ctx context.Context, intent Intent, idempotencyKey string) (Ack, error)
	PollFills(ctx context.Context, orderID string) (*FillEvent, error)
	ClosePosition(ctx context.Context, tradeID string) (DealEvent, error)
}

// Snapshot is the venue-reported account state.
type Snapshot struct {
	Equity float64
	Margin float64
}

// Intent describes the order the engine wants executed.
type Intent struct {
	Symbol     string
	Side       market.Side
	Lots       float64
	StopLoss   float64
	TakeProfit float64
	Type       market.OrderType
	Price      float64 // limit/stop orders only
}

// Ack is the venue's acceptance of a submission.
type Ack struct {
	OrderID  string // engine-side order id echoed back
	VenueRef string // venue-side ticket/reference
	At       time.Time
}

// FillEvent reports execution progress for a submitted order: a full or
// partial fill, or a post-ack rejection from the venue.
type FillEvent struct {
	OrderID  string
	Lots     float64
	Price    float64
	Partial  bool
	Rejected bool
	At       time.Time
}

// DealEvent reports a closed position with its realized result.
type DealEvent struct {
	TradeID     string
	RealizedPnL float64
	ClosePrice  float64
	At          time.Time
}
