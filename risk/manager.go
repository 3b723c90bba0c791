package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/riskgate/market"
)

var (
	ErrDuplicateTrade    = errors.New("duplicate trade id")
	ErrUnknownTrade      = errors.New("unknown trade id")
	ErrMaxActiveTrades   = errors.New("max active trades reached")
	ErrDailyRiskExceeded = errors.New("reservation exceeds daily risk limit")
)

// SizingError means position sizing produced nothing tradable (stop too
// tight, account too small). Callers treat it as a non-admission, never a
// crash.
type SizingError struct {
	Symbol string
	Msg    string
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("sizing %s: %s", e.Symbol, e.Msg)
}

// Reason codes a CanOpenTrade denial.
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonMaxTrades          Reason = "max_trades_reached"
	ReasonDailyRiskExhausted Reason = "daily_risk_exhausted"
	ReasonInvalidStop        Reason = "invalid_stop"
)

// Decision is the admission verdict for a proposed trade.
type Decision struct {
	Admit  bool
	Reason Reason
}

// Result carries the outputs of position sizing.
type Result struct {
	Lots       float64
	RiskAmount float64 // account currency at risk if the stop is hit
	LossPerLot float64
}

// Limits is the static risk configuration for one account.
type Limits struct {
	PerDayPct        float64 // daily budget as a fraction of day-open equity
	MaxActiveTrades  int
	MinRiskIncrement float64 // smallest admissible remaining budget
	HistoryCap       int     // closed trades retained for dynamic policies
}

const defaultHistoryCap = 128

// riskEpsilon absorbs float drift when a reservation exactly fills the
// remaining budget.
const riskEpsilon = 1e-9

// Manager owns one Account and is the only component allowed to mutate it.
// Writers are mutually exclusive; read-only queries observe a consistent
// ledger under the read lock. Manager methods never do I/O, so the lock is
// only ever held for in-memory work.
type Manager struct {
	mu      sync.RWMutex
	acct    *Account
	limits  Limits
	policy  Policy
	history []ClosedTrade
}

// NewManager snapshots a fresh day ledger from the given equity.
func NewManager(limits Limits, equity float64, day time.Time) *Manager {
	if limits.HistoryCap <= 0 {
		limits.HistoryCap = defaultHistoryCap
	}
	return &Manager{
		acct: &Account{
			Equity:          equity,
			DailyRiskLimit:  equity * limits.PerDayPct,
			MaxActiveTrades: limits.MaxActiveTrades,
			ActiveTrades:    make(map[string]ActiveTrade),
			Day:             day,
		},
		limits: limits,
		policy: FixedPolicy{},
	}
}

// SetPolicy swaps the dynamic risk policy. Defaults to FixedPolicy.
func (m *Manager) SetPolicy(p Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != nil {
		m.policy = p
	}
}

// CanOpenTrade decides admissibility for a new entry. It does not reserve
// anything; the reservation happens in RegisterNewTrade once the venue has
// acknowledged the order.
func (m *Manager) CanOpenTrade(info market.SymbolInfo, stopDistance float64) Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.acct.ActiveTrades) >= m.acct.MaxActiveTrades {
		return Decision{Reason: ReasonMaxTrades}
	}
	if m.remainingLocked() < m.limits.MinRiskIncrement {
		return Decision{Reason: ReasonDailyRiskExhausted}
	}
	if stopDistance <= 0 {
		return Decision{Reason: ReasonInvalidStop}
	}
	return Decision{Admit: true, Reason: ReasonOK}
}

// ComputePositionSize turns a stop distance and risk fraction into lots,
// normalized to the symbol's lot step. Rounding is always down so the
// realized risk never exceeds the requested fraction.
func (m *Manager) ComputePositionSize(info market.SymbolInfo, stopDistance, riskPct float64) (Result, error) {
	m.mu.RLock()
	equity := m.acct.Equity
	m.mu.RUnlock()

	lossPerLot := stopDistance * info.PipValuePerLot()
	if lossPerLot <= 0 {
		return Result{}, &SizingError{Symbol: info.Symbol, Msg: "non-positive loss per lot"}
	}

	riskAmount := equity * riskPct
	raw := riskAmount / lossPerLot
	if raw < info.MinLot {
		raw = info.MinLot
	}
	lots := market.RoundDownToStep(raw, info.LotStep)
	if lots <= 0 {
		return Result{}, &SizingError{Symbol: info.Symbol, Msg: "normalized lots is zero"}
	}

	return Result{Lots: lots, RiskAmount: riskAmount, LossPerLot: lossPerLot}, nil
}

// AdjustedRiskPct runs the dynamic policy over the current ledger and
// trailing trade history.
func (m *Manager) AdjustedRiskPct(base float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy.Adjust(m.snapshotLocked(), m.history, base)
}

// RegisterNewTrade atomically inserts the trade and consumes its
// reservation from the daily budget. It is not an idempotent no-op:
// replaying a trade id is a consistency fault. The capacity checks here
// are the commit-time backstop: even if admission raced, a registration
// can never push the ledger past MaxActiveTrades, and can never push
// DailyRiskUsed past DailyRiskLimit (only realized losses may do that).
func (m *Manager) RegisterNewTrade(t ActiveTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.acct.ActiveTrades[t.TradeID]; ok {
		return fmt.Errorf("register trade %s: %w", t.TradeID, ErrDuplicateTrade)
	}
	if len(m.acct.ActiveTrades) >= m.acct.MaxActiveTrades {
		return fmt.Errorf("register trade %s: %w", t.TradeID, ErrMaxActiveTrades)
	}
	if m.acct.DailyRiskUsed+t.RiskAmount > m.acct.DailyRiskLimit+riskEpsilon {
		return fmt.Errorf("register trade %s: %w", t.TradeID, ErrDailyRiskExceeded)
	}
	m.acct.ActiveTrades[t.TradeID] = t
	m.acct.DailyRiskUsed += t.RiskAmount
	return nil
}

// RegisterClose settles a trade. The reservation is released, then any
// realized loss is charged back against the day's budget: an expiry or
// break-even close restores the pre-reservation headroom, a stop-out
// consumes roughly what was reserved, and a loss beyond the reservation
// consumes the excess too. Profit never returns more than the reservation.
func (m *Manager) RegisterClose(tradeID string, realizedPnL float64, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.acct.ActiveTrades[tradeID]
	if !ok {
		return fmt.Errorf("close trade %s: %w", tradeID, ErrUnknownTrade)
	}
	delete(m.acct.ActiveTrades, tradeID)

	used := m.acct.DailyRiskUsed - t.RiskAmount
	if realizedPnL < 0 {
		used += -realizedPnL
	}
	if floor := m.acct.reservedTotal(); used < floor {
		used = floor
	}
	if used < 0 {
		used = 0
	}
	m.acct.DailyRiskUsed = used

	m.history = append(m.history, ClosedTrade{
		TradeID:     tradeID,
		Symbol:      t.Symbol,
		RiskAmount:  t.RiskAmount,
		RealizedPnL: realizedPnL,
		ClosedAt:    closedAt,
	})
	if len(m.history) > m.limits.HistoryCap {
		m.history = m.history[len(m.history)-m.limits.HistoryCap:]
	}
	return nil
}

// RemainingDailyRisk is the unreserved daily budget, clamped at zero.
func (m *Manager) RemainingDailyRisk() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remainingLocked()
}

func (m *Manager) remainingLocked() float64 {
	r := m.acct.DailyRiskLimit - m.acct.DailyRiskUsed
	if r < 0 {
		return 0
	}
	return r
}

// ResetDailyLimits starts a fresh day snapshot. Reservations for trades
// still open across the boundary are carried forward: the new baseline for
// DailyRiskUsed is their sum, never zero while trades remain open.
func (m *Manager) ResetDailyLimits(newEquity float64, day time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acct.Equity = newEquity
	m.acct.DailyRiskLimit = newEquity * m.limits.PerDayPct
	m.acct.DailyRiskUsed = m.acct.reservedTotal()
	m.acct.Day = day
}

// UpdateEquity refreshes the cached equity between day boundaries. The
// daily limit stays anchored to the day-open snapshot.
func (m *Manager) UpdateEquity(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acct.Equity = equity
}

// Snapshot returns a consistent read-only view of the ledger.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Equity:          m.acct.Equity,
		DailyRiskUsed:   m.acct.DailyRiskUsed,
		DailyRiskLimit:  m.acct.DailyRiskLimit,
		MaxActiveTrades: m.acct.MaxActiveTrades,
		ActiveTrades:    len(m.acct.ActiveTrades),
		Day:             m.acct.Day,
	}
}

// ActiveTrade looks up one open reservation by trade id.
func (m *Manager) ActiveTrade(tradeID string) (ActiveTrade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.acct.ActiveTrades[tradeID]
	return t, ok
}

// ActiveTrades returns a copy of the open reservations.
func (m *Manager) ActiveTrades() []ActiveTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ActiveTrade, 0, len(m.acct.ActiveTrades))
	for _, t := range m.acct.ActiveTrades {
		out = append(out, t)
	}
	return out
}
