package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPolicy(t *testing.T) {
	t.Parallel()

	p := FixedPolicy{}
	assert.Equal(t, 0.005, p.Adjust(Snapshot{Equity: 10000}, nil, 0.005))
}

func TestDrawdownPolicyReducesAfterThreshold(t *testing.T) {
	t.Parallel()

	p := DrawdownPolicy{Window: 5, DrawdownThresholdPct: 0.01, ReduceFactor: 0.5}
	snap := Snapshot{Equity: 10000} // threshold = 100 of cumulative loss

	history := []ClosedTrade{
		{RealizedPnL: -40},
		{RealizedPnL: 30},
		{RealizedPnL: -50},
	}
	// Drawdown 90 <= 100: unchanged.
	assert.InDelta(t, 0.005, p.Adjust(snap, history, 0.005), 1e-12)

	history = append(history, ClosedTrade{RealizedPnL: -20})
	// Drawdown 110 > 100: halved.
	assert.InDelta(t, 0.0025, p.Adjust(snap, history, 0.005), 1e-12)
}

func TestDrawdownPolicyTrailingWindow(t *testing.T) {
	t.Parallel()

	p := DrawdownPolicy{Window: 2, DrawdownThresholdPct: 0.01, ReduceFactor: 0.5}
	snap := Snapshot{Equity: 10000}

	// Old losses fall out of the window.
	history := []ClosedTrade{
		{RealizedPnL: -500},
		{RealizedPnL: 10},
		{RealizedPnL: 10},
	}
	assert.InDelta(t, 0.005, p.Adjust(snap, history, 0.005), 1e-12)
}

func TestManagerAppliesPolicyOverHistory(t *testing.T) {
	t.Parallel()

	m := newTestManager(Limits{PerDayPct: 0.5, MaxActiveTrades: 10}, 10000)
	m.SetPolicy(DrawdownPolicy{Window: 10, DrawdownThresholdPct: 0.01, ReduceFactor: 0.5})

	// No history yet: base fraction passes through.
	assert.InDelta(t, 0.005, m.AdjustedRiskPct(0.005), 1e-12)

	require.NoError(t, m.RegisterNewTrade(ActiveTrade{TradeID: "t1", RiskAmount: 120}))
	require.NoError(t, m.RegisterClose("t1", -120, time.Now()))

	// Cumulative drawdown 120 > 1% of 10000.
	assert.InDelta(t, 0.0025, m.AdjustedRiskPct(0.005), 1e-12)
}
