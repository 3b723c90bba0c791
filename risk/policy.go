package risk

// Policy adjusts the per-trade risk fraction before sizing. Implementations
// are swappable at startup; the engine never hard-codes one.
type Policy interface {
	Adjust(acct Snapshot, history []ClosedTrade, riskPct float64) float64
}

// FixedPolicy leaves the configured fraction untouched.
type FixedPolicy struct{}

func (FixedPolicy) Adjust(_ Snapshot, _ []ClosedTrade, riskPct float64) float64 {
	return riskPct
}

// DrawdownPolicy cuts the risk fraction by ReduceFactor once the cumulative
// loss over the trailing Window of closed trades exceeds
// DrawdownThresholdPct of current equity.
type DrawdownPolicy struct {
	Window               int
	DrawdownThresholdPct float64 // fraction of equity, e.g. 0.05
	ReduceFactor         float64 // e.g. 0.5 halves the risk fraction
}

func (p DrawdownPolicy) Adjust(acct Snapshot, history []ClosedTrade, riskPct float64) float64 {
	if p.Window <= 0 || acct.Equity <= 0 {
		return riskPct
	}

	tail := history
	if len(tail) > p.Window {
		tail = tail[len(tail)-p.Window:]
	}

	var drawdown float64
	for _, t := range tail {
		if t.RealizedPnL < 0 {
			drawdown += -t.RealizedPnL
		}
	}

	if drawdown/acct.Equity > p.DrawdownThresholdPct {
		return riskPct * p.ReduceFactor
	}
	return riskPct
}
