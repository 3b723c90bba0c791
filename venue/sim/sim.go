// Package sim is an in-memory venue for tests and paper runs. It honors
// idempotency keys the way a real venue-side dedup cache would and lets
// tests script failures and fill timing.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/riskgate/market"
	"github.com/rustyeddy/riskgate/venue"
)

type Venue struct {
	mu      sync.Mutex
	equity  float64
	margin  float64
	symbols map[string]market.SymbolInfo

	acks      map[string]venue.Ack // idempotency key -> original ack
	fills     map[string][]venue.FillEvent
	closePnL  map[string]float64
	submitErr []error // scripted submission failures, consumed FIFO

	autoFill  bool // queue a full fill on every accepted submission
	fillPrice float64

	submits int // accepted (non-replayed) submissions
	nextRef int
}

func New(equity float64) *Venue {
	return &Venue{
		equity:    equity,
		symbols:   make(map[string]market.SymbolInfo),
		acks:      make(map[string]venue.Ack),
		fills:     make(map[string][]venue.FillEvent),
		closePnL:  make(map[string]float64),
		autoFill:  true,
		fillPrice: 1.0,
	}
}

// AddSymbol registers an instrument the venue quotes.
func (v *Venue) AddSymbol(info market.SymbolInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.symbols[info.Symbol] = info
}

// SetEquity updates the reported account equity.
func (v *Venue) SetEquity(equity float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.equity = equity
}

// SetAutoFill controls whether accepted submissions immediately queue a
// full fill. Disable it to exercise acknowledgment timeouts.
func (v *Venue) SetAutoFill(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.autoFill = on
}

// FailNextSubmits scripts the next n submissions to fail with the given
// error before any idempotency handling happens.
func (v *Venue) FailNextSubmits(n int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := 0; i < n; i++ {
		v.submitErr = append(v.submitErr, err)
	}
}

// SetClosePnL scripts the realized result reported when tradeID is closed.
func (v *Venue) SetClosePnL(tradeID string, pnl float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closePnL[tradeID] = pnl
}

// QueueFill appends a fill event for PollFills to hand out.
func (v *Venue) QueueFill(f venue.FillEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fills[f.OrderID] = append(v.fills[f.OrderID], f)
}

// Submissions returns the count of accepted, non-replayed submissions.
func (v *Venue) Submissions() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submits
}

func (v *Venue) AccountSnapshot(ctx context.Context) (venue.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return venue.Snapshot{}, venue.NewTransient("account", "context done", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return venue.Snapshot{Equity: v.equity, Margin: v.margin}, nil
}

func (v *Venue) SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.symbols[symbol]
	if !ok {
		return market.SymbolInfo{}, fmt.Errorf("sim venue: %s: %w", symbol, venue.ErrUnknownSymbol)
	}
	return info, nil
}

// SubmitOrder accepts an intent once per idempotency key. A replayed key
// returns the original ack without creating a second order, which is what
// lets the engine retry transient failures safely.
func (v *Venue) SubmitOrder(ctx context.Context, intent venue.Intent, idempotencyKey string) (venue.Ack, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.submitErr) > 0 {
		err := v.submitErr[0]
		v.submitErr = v.submitErr[1:]
		return venue.Ack{}, err
	}

	if ack, ok := v.acks[idempotencyKey]; ok {
		return ack, nil
	}

	if _, ok := v.symbols[intent.Symbol]; !ok {
		return venue.Ack{}, venue.NewPermanent("submit", "unknown symbol "+intent.Symbol, venue.ErrUnknownSymbol)
	}
	if intent.Lots <= 0 {
		return venue.Ack{}, venue.NewPermanent("submit", "non-positive lots", nil)
	}

	v.nextRef++
	v.submits++
	ack := venue.Ack{
		OrderID:  fmt.Sprintf("sim-%d", v.nextRef),
		VenueRef: fmt.Sprintf("ticket-%d", v.nextRef),
		At:       time.Now().UTC(),
	}
	v.acks[idempotencyKey] = ack

	if v.autoFill {
		v.fills[ack.OrderID] = append(v.fills[ack.OrderID], venue.FillEvent{
			OrderID: ack.OrderID,
			Lots:    intent.Lots,
			Price:   v.fillPrice,
			At:      ack.At,
		})
	}
	return ack, nil
}

// PollFills hands out at most one queued fill per call.
func (v *Venue) PollFills(ctx context.Context, orderID string) (*venue.FillEvent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	queue := v.fills[orderID]
	if len(queue) == 0 {
		return nil, nil
	}
	f := queue[0]
	v.fills[orderID] = queue[1:]
	return &f, nil
}

func (v *Venue) ClosePosition(ctx context.Context, tradeID string) (venue.DealEvent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pnl := v.closePnL[tradeID]
	return venue.DealEvent{
		TradeID:     tradeID,
		RealizedPnL: pnl,
		ClosePrice:  v.fillPrice,
		At:          time.Now().UTC(),
	}, nil
}

var _ venue.Gateway = (*Venue)(nil)
