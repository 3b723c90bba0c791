package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskgate/market"
	"github.com/rustyeddy/riskgate/venue"
)

var eurusd = market.SymbolInfo{
	Symbol:       "EURUSD",
	Point:        0.0001,
	Digits:       5,
	ContractSize: 100000,
	LotStep:      0.01,
	MinLot:       0.01,
}

func TestSubmitIdempotency(t *testing.T) {
	t.Parallel()

	v := New(10000)
	v.AddSymbol(eurusd)
	ctx := context.Background()

	intent := venue.Intent{Symbol: "EURUSD", Side: market.Buy, Lots: 0.25, Type: market.Market}

	ack1, err := v.SubmitOrder(ctx, intent, "key-1")
	require.NoError(t, err)

	ack2, err := v.SubmitOrder(ctx, intent, "key-1")
	require.NoError(t, err)

	assert.Equal(t, ack1, ack2, "replayed key must return the original ack")
	assert.Equal(t, 1, v.Submissions())

	ack3, err := v.SubmitOrder(ctx, intent, "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, ack1.OrderID, ack3.OrderID)
	assert.Equal(t, 2, v.Submissions())
}

func TestScriptedFailuresThenSuccess(t *testing.T) {
	t.Parallel()

	v := New(10000)
	v.AddSymbol(eurusd)
	ctx := context.Background()

	v.FailNextSubmits(2, venue.NewTransient("submit", "flaky link", nil))

	intent := venue.Intent{Symbol: "EURUSD", Side: market.Sell, Lots: 0.1, Type: market.Market}

	_, err := v.SubmitOrder(ctx, intent, "key-1")
	require.Error(t, err)
	assert.True(t, venue.IsTransient(err))

	_, err = v.SubmitOrder(ctx, intent, "key-1")
	require.Error(t, err)

	ack, err := v.SubmitOrder(ctx, intent, "key-1")
	require.NoError(t, err)
	assert.NotEmpty(t, ack.OrderID)
}

func TestUnknownSymbol(t *testing.T) {
	t.Parallel()

	v := New(10000)
	ctx := context.Background()

	_, err := v.SymbolInfo(ctx, "XAUUSD")
	require.ErrorIs(t, err, venue.ErrUnknownSymbol)

	_, err = v.SubmitOrder(ctx, venue.Intent{Symbol: "XAUUSD", Lots: 1}, "k")
	require.Error(t, err)
	assert.False(t, venue.IsTransient(err))
}

func TestFillsDrainOnce(t *testing.T) {
	t.Parallel()

	v := New(10000)
	v.AddSymbol(eurusd)
	ctx := context.Background()

	ack, err := v.SubmitOrder(ctx, venue.Intent{Symbol: "EURUSD", Side: market.Buy, Lots: 0.25, Type: market.Market}, "k")
	require.NoError(t, err)

	f, err := v.PollFills(ctx, ack.OrderID)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, 0.25, f.Lots, 1e-9)

	f, err = v.PollFills(ctx, ack.OrderID)
	require.NoError(t, err)
	assert.Nil(t, f, "a fill is handed out once")
}

func TestNoAutoFill(t *testing.T) {
	t.Parallel()

	v := New(10000)
	v.AddSymbol(eurusd)
	v.SetAutoFill(false)
	ctx := context.Background()

	ack, err := v.SubmitOrder(ctx, venue.Intent{Symbol: "EURUSD", Side: market.Buy, Lots: 0.25, Type: market.Market}, "k")
	require.NoError(t, err)

	f, err := v.PollFills(ctx, ack.OrderID)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestClosePositionScriptedPnL(t *testing.T) {
	t.Parallel()

	v := New(10000)
	v.SetClosePnL("trade-1", -42.5)

	deal, err := v.ClosePosition(context.Background(), "trade-1")
	require.NoError(t, err)
	assert.Equal(t, "trade-1", deal.TradeID)
	assert.InDelta(t, -42.5, deal.RealizedPnL, 1e-9)
}
