package risk

import "time"

// Account is the per-day risk ledger for one trading account. It is owned
// exclusively by a Manager; nothing else mutates it.
type Account struct {
	Equity          float64
	DailyRiskUsed   float64
	DailyRiskLimit  float64 // equity * per-day pct, snapshotted at day start
	MaxActiveTrades int
	ActiveTrades    map[string]ActiveTrade
	Day             time.Time // day-open anchor in the broker timezone
}

// ActiveTrade is one open position's reservation against the daily budget.
type ActiveTrade struct {
	TradeID      string
	Symbol       string
	RiskAmount   float64 // account currency reserved at entry
	Lots         float64
	StopDistance float64 // in pips
	OpenedAt     time.Time
}

// ClosedTrade is a settled trade kept in the trailing history for dynamic
// risk policies.
type ClosedTrade struct {
	TradeID     string
	Symbol      string
	RiskAmount  float64
	RealizedPnL float64
	ClosedAt    time.Time
}

// Snapshot is a consistent read-only view of the ledger.
type Snapshot struct {
	Equity          float64
	DailyRiskUsed   float64
	DailyRiskLimit  float64
	MaxActiveTrades int
	ActiveTrades    int
	Day             time.Time
}

// reservedTotal sums the open reservations. The ledger invariant is
// reservedTotal <= DailyRiskUsed at every Manager return point.
func (a *Account) reservedTotal() float64 {
	var sum float64
	for _, t := range a.ActiveTrades {
		sum += t.RiskAmount
	}
	return sum
}
