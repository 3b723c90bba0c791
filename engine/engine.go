// Package engine runs the order orchestration loop: strategy signals in,
// risk-gated venue orders out, every lifecycle step journaled and alerted
// exactly once. All order and ledger mutation happens on the single Run
// goroutine; the risk ledger lock is never held across venue I/O.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/riskgate/alert"
	"github.com/rustyeddy/riskgate/internal/id"
	"github.com/rustyeddy/riskgate/journal"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/rustyeddy/riskgate/order"
	"github.com/rustyeddy/riskgate/risk"
	"github.com/rustyeddy/riskgate/strategy"
	"github.com/rustyeddy/riskgate/venue"
)

// Config holds the engine's tunables. Zero values are replaced by
// defaults in New.
type Config struct {
	PerTradeRiskPct float64        // fraction of equity risked per trade
	PollInterval    time.Duration  // cycle cadence in Run
	OrderTimeout    time.Duration  // PLACED orders unfilled past this expire
	MaxAttempts     int            // submission attempts per order
	BackoffBase     time.Duration  // first retry delay, doubles per attempt
	KeyBucket       time.Duration  // signal timestamp bucket for idempotency keys
	Tag             string         // appended to signal tags lacking one
	Location        *time.Location // broker timezone for the daily boundary
}

func (c *Config) applyDefaults() {
	if c.PerTradeRiskPct <= 0 {
		c.PerTradeRiskPct = 0.005
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 2 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 250 * time.Millisecond
	}
	if c.KeyBucket <= 0 {
		c.KeyBucket = time.Minute
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Engine drives the trade lifecycle. It owns the order table outright;
// the risk Manager, journal, and alert service are shared collaborators.
type Engine struct {
	cfg    Config
	gw     venue.Gateway
	rm     *risk.Manager
	src    strategy.Source
	jrn    journal.Journal
	alerts *alert.Service
	met    *metrics.Metrics
	log    *slog.Logger
	now    func() time.Time

	orders   map[string]*order.Order // order id -> live order
	venueIDs map[string]string       // order id -> venue-side order id
	pending  map[string]float64      // order id -> risk amount, until registered
	keys     map[string]string       // idempotency key -> order id, cleared at rollover
	parked   map[string]bool         // orders frozen after a consistency fault
	timers   *timerQueue

	day          time.Time // current day-open anchor in cfg.Location
	dailyLocked  bool      // true once the daily budget is exhausted
	dailyAlerted bool      // daily exhaustion alert sent for this day
}

func New(cfg Config, gw venue.Gateway, rm *risk.Manager, src strategy.Source,
	jrn journal.Journal, alerts *alert.Service, met *metrics.Metrics, log *slog.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:      cfg,
		gw:       gw,
		rm:       rm,
		src:      src,
		jrn:      jrn,
		alerts:   alerts,
		met:      met,
		log:      log,
		now:      time.Now,
		orders:   make(map[string]*order.Order),
		venueIDs: make(map[string]string),
		pending:  make(map[string]float64),
		keys:     make(map[string]string),
		parked:   make(map[string]bool),
		timers:   newTimerQueue(),
	}
}

// SetClock overrides the wall clock. Tests drive Cycle with a synthetic
// clock instead of sleeping.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Run polls until the context is cancelled. Shutdown is clean: in-flight
// orders stay with the venue and are reconciled on the next start via the
// idempotent submission keys.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started",
		"poll_interval", e.cfg.PollInterval,
		"order_timeout", e.cfg.OrderTimeout,
		"per_trade_pct", e.cfg.PerTradeRiskPct)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return nil
		case <-ticker.C:
			e.Cycle(ctx, e.now())
		}
	}
}

// Cycle performs one engine pass: due timers, the daily boundary, strategy
// signals, then fill polling. Exported so tests and backfills can step the
// engine deterministically.
func (e *Engine) Cycle(ctx context.Context, now time.Time) {
	e.rolloverIfNeeded(ctx, now)
	for _, t := range e.timers.PopDue(now) {
		t.fn(ctx, now)
	}

	entries, exits, err := e.src.Poll(ctx)
	if err != nil {
		e.log.Warn("strategy poll failed", "err", err)
	}
	// Exits first: a freed reservation may admit an entry from the same
	// batch.
	for _, x := range exits {
		e.handleExit(ctx, x, now)
	}
	for _, sig := range entries {
		e.handleEntry(ctx, sig, now)
	}

	e.pollFills(ctx, now)
	e.publishGauges()
}

// dayOf truncates to the day-open anchor in the broker timezone.
func (e *Engine) dayOf(now time.Time) time.Time {
	t := now.In(e.cfg.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.cfg.Location)
}

func (e *Engine) rolloverIfNeeded(ctx context.Context, now time.Time) {
	day := e.dayOf(now)
	if e.day.IsZero() {
		e.day = day
		return
	}
	if !day.After(e.day) {
		return
	}

	equity := e.rm.Snapshot().Equity
	if snap, err := e.gw.AccountSnapshot(ctx); err == nil {
		equity = snap.Equity
	} else {
		e.log.Warn("rollover snapshot failed, using last known equity", "err", err)
	}

	e.rm.ResetDailyLimits(equity, day)
	e.day = day
	e.dailyLocked = false
	e.dailyAlerted = false
	e.keys = make(map[string]string)
	e.log.Info("daily limits reset", "day", day.Format("2006-01-02"), "equity", equity)
}

func (e *Engine) handleEntry(ctx context.Context, sig strategy.Signal, now time.Time) {
	e.met.SignalsTotal.Inc()

	if sig.Tag == "" {
		sig.Tag = e.cfg.Tag
	}

	// Daily lock short-circuits before the ledger is consulted; exhaustion
	// already alerted once when the lock engaged.
	if e.dailyLocked {
		e.met.RejectionsTotal.WithLabelValues(string(risk.ReasonDailyRiskExhausted)).Inc()
		e.log.Debug("daily lock active, signal dropped", "symbol", sig.Symbol)
		return
	}

	key := idempotencyKey(sig, e.cfg.KeyBucket)
	if oid, ok := e.keys[key]; ok {
		e.log.Debug("duplicate signal dropped", "symbol", sig.Symbol, "order", oid)
		return
	}

	info, err := e.gw.SymbolInfo(ctx, sig.Symbol)
	if err != nil {
		e.log.Error("symbol lookup failed", "symbol", sig.Symbol, "err", err)
		e.alertError(ctx, map[string]any{"stage": "symbol_info", "symbol": sig.Symbol, "error": err.Error()})
		return
	}

	// Snapshot before deciding so sizing sees current equity. No risk lock
	// is held while we talk to the venue.
	if snap, err := e.gw.AccountSnapshot(ctx); err == nil {
		e.rm.UpdateEquity(snap.Equity)
	} else {
		e.log.Warn("account snapshot failed, using last known equity", "err", err)
	}

	dec := e.rm.CanOpenTrade(info, sig.StopDistance)
	if !dec.Admit {
		e.reject(ctx, sig, string(dec.Reason), now)
		return
	}

	// Admitted orders awaiting a venue ack hold no ledger reservation yet,
	// so they count here: otherwise a retry window would admit past the
	// limits.
	pendingCount, pendingRisk := e.pendingAdmissions()
	if pendingCount > 0 {
		snap := e.rm.Snapshot()
		if snap.ActiveTrades+pendingCount >= snap.MaxActiveTrades {
			e.reject(ctx, sig, string(risk.ReasonMaxTrades), now)
			return
		}
	}

	pct := e.rm.AdjustedRiskPct(e.cfg.PerTradeRiskPct)
	res, err := e.rm.ComputePositionSize(info, sig.StopDistance, pct)
	if err != nil {
		e.reject(ctx, sig, "unsizable", now)
		return
	}
	if res.RiskAmount+pendingRisk > e.rm.RemainingDailyRisk()+1e-9 {
		e.reject(ctx, sig, string(risk.ReasonDailyRiskExhausted), now)
		return
	}

	e.met.AdmissionsTotal.Inc()

	o := order.NewOrder(id.NewOrderID(), id.NewTradeID(), sig.Symbol, sig.Side, res.Lots)
	o.StopLoss = sig.StopDistance
	if sig.TakeProfit != nil {
		o.TakeProfit = *sig.TakeProfit
	}
	o.IdempotencyKey = key

	e.orders[o.ID] = o
	e.keys[key] = o.ID
	e.pending[o.ID] = res.RiskAmount

	e.log.Info("order admitted",
		"order", o.ID, "trade", o.TradeID, "symbol", o.Symbol,
		"side", o.Side, "lots", o.Lots, "risk", res.RiskAmount)

	e.submit(ctx, o, now, 1)
}

// reject accounts for a denied signal: metric, journal row, and alert. The
// daily exhaustion alert fires at most once per day; the lock it sets
// suppresses further ledger churn until rollover.
func (e *Engine) reject(ctx context.Context, sig strategy.Signal, reason string, now time.Time) {
	e.met.RejectionsTotal.WithLabelValues(reason).Inc()
	e.log.Info("signal rejected", "symbol", sig.Symbol, "reason", reason)

	rec := journal.TransitionRecord{
		Symbol:  sig.Symbol,
		To:      order.Rejected,
		At:      now,
		Payload: fmt.Sprintf(`{"reason":%q,"side":%q,"tag":%q}`, reason, sig.Side, sig.Tag),
	}
	if err := e.jrn.RecordTransition(rec); err != nil {
		e.log.Error("journal write failed", "err", err)
	}

	if reason == string(risk.ReasonDailyRiskExhausted) {
		e.dailyLocked = true
		if e.dailyAlerted {
			return
		}
		e.dailyAlerted = true
	}
	_ = e.alerts.Send(ctx, alert.KindRiskRejection, map[string]any{
		"symbol": sig.Symbol,
		"side":   string(sig.Side),
		"reason": reason,
	})
}

// submit attempts one venue submission. Transient failures reschedule with
// exponential backoff under the same idempotency key, so a duplicate of an
// already-accepted order replays the original ack.
func (e *Engine) submit(ctx context.Context, o *order.Order, now time.Time, attempt int) {
	o.AttemptCount = attempt
	e.met.SubmissionsTotal.Inc()

	intent := venue.Intent{
		Symbol:     o.Symbol,
		Side:       o.Side,
		Lots:       o.Lots,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Type:       o.Type,
	}
	ack, err := e.gw.SubmitOrder(ctx, intent, o.IdempotencyKey)
	if err == nil {
		e.place(ctx, o, ack, now)
		return
	}

	if venue.IsTransient(err) && attempt < e.cfg.MaxAttempts {
		e.met.RetriesTotal.Inc()
		delay := e.cfg.BackoffBase << (attempt - 1)
		e.log.Warn("submit failed, retrying",
			"order", o.ID, "attempt", attempt, "delay", delay, "err", err)
		e.timers.Schedule(now.Add(delay), func(ctx context.Context, now time.Time) {
			e.submit(ctx, o, now, attempt+1)
		})
		return
	}

	e.log.Error("submit failed permanently",
		"order", o.ID, "symbol", o.Symbol, "attempts", attempt, "err", err)
	e.alertError(ctx, map[string]any{
		"stage":    "submit",
		"order":    o.ID,
		"symbol":   o.Symbol,
		"attempts": attempt,
		"error":    err.Error(),
	})
	// The order never reached the venue; release it without touching the
	// ledger. The key stays mapped so the same signal is not retried this
	// day.
	delete(e.orders, o.ID)
	delete(e.pending, o.ID)
}

// place records the venue ack: PLACED transition, ledger reservation, and
// the expiry timer. Reservation happens here, at the ack, so an order the
// venue holds is always backed by budget.
func (e *Engine) place(ctx context.Context, o *order.Order, ack venue.Ack, now time.Time) {
	at := ack.At
	if at.IsZero() {
		at = now
	}
	if err := o.Transition(order.Placed, at); err != nil {
		e.park(ctx, o, err)
		return
	}
	e.venueIDs[o.ID] = ack.OrderID

	riskAmount := e.pending[o.ID]
	delete(e.pending, o.ID)
	err := e.rm.RegisterNewTrade(risk.ActiveTrade{
		TradeID:      o.TradeID,
		Symbol:       o.Symbol,
		RiskAmount:   riskAmount,
		Lots:         o.Lots,
		StopDistance: o.StopLoss,
		OpenedAt:     at,
	})
	if errors.Is(err, risk.ErrMaxActiveTrades) || errors.Is(err, risk.ErrDailyRiskExceeded) {
		// Lost the capacity race between admission and the ack. Withdraw
		// the order rather than carry a trade the ledger refused.
		e.log.Warn("capacity lost before ack, order withdrawn", "order", o.ID, "err", err)
		if terr := o.Transition(order.Cancelled, at); terr != nil {
			e.park(ctx, o, terr)
			return
		}
		e.met.RejectionsTotal.WithLabelValues("capacity_lost").Inc()
		e.emit(ctx, o, `{"reason":"capacity_lost"}`)
		e.forget(o)
		return
	}
	if err != nil {
		e.park(ctx, o, err)
		return
	}

	deadline := now.Add(e.cfg.OrderTimeout)
	e.timers.Schedule(deadline, func(ctx context.Context, now time.Time) {
		e.expireIfUnfilled(ctx, o, now)
	})

	e.log.Info("order placed", "order", o.ID, "venue_ref", ack.VenueRef)
	e.emit(ctx, o, "")
}

// expireIfUnfilled fires from the timer queue. A PLACED order past its
// deadline expires and its reservation returns to the daily budget.
func (e *Engine) expireIfUnfilled(ctx context.Context, o *order.Order, now time.Time) {
	if e.parked[o.ID] || o.State() != order.Placed {
		return
	}
	if err := o.Transition(order.Expired, now); err != nil {
		e.park(ctx, o, err)
		return
	}
	if err := e.rm.RegisterClose(o.TradeID, 0, now); err != nil {
		e.log.Error("expiry close failed", "order", o.ID, "err", err)
	}
	e.met.ExpiriesTotal.Inc()
	e.log.Info("order expired", "order", o.ID, "symbol", o.Symbol)
	e.emit(ctx, o, "")
	e.forget(o)
}

func (e *Engine) pollFills(ctx context.Context, now time.Time) {
	for _, o := range e.orders {
		if e.parked[o.ID] {
			continue
		}
		st := o.State()
		if st != order.Placed && st != order.PartiallyFilled {
			continue
		}
		vid, ok := e.venueIDs[o.ID]
		if !ok {
			continue
		}

		f, err := e.gw.PollFills(ctx, vid)
		if err != nil {
			e.log.Warn("fill poll failed", "order", o.ID, "err", err)
			continue
		}
		if f == nil {
			continue
		}

		at := f.At
		if at.IsZero() {
			at = now
		}

		if f.Rejected {
			if err := o.Transition(order.Rejected, at); err != nil {
				e.park(ctx, o, err)
				continue
			}
			if err := e.rm.RegisterClose(o.TradeID, 0, at); err != nil {
				e.log.Error("rejection close failed", "order", o.ID, "err", err)
			}
			e.log.Warn("order rejected by venue", "order", o.ID, "symbol", o.Symbol)
			e.emit(ctx, o, "")
			e.forget(o)
			continue
		}

		to := order.Filled
		if f.Partial {
			to = order.PartiallyFilled
		}
		if o.State() == order.PartiallyFilled && f.Partial {
			// Further partials accumulate on the venue side; the lifecycle
			// state does not move.
			e.log.Debug("additional partial fill", "order", o.ID, "lots", f.Lots)
			continue
		}
		if err := o.Transition(to, at); err != nil {
			e.park(ctx, o, err)
			continue
		}
		e.met.FillsTotal.Inc()
		e.log.Info("order filled",
			"order", o.ID, "lots", f.Lots, "price", f.Price, "partial", f.Partial)
		e.emit(ctx, o, fmt.Sprintf(`{"lots":%g,"price":%g}`, f.Lots, f.Price))
	}
}

func (e *Engine) handleExit(ctx context.Context, x strategy.ExitSignal, now time.Time) {
	t, ok := e.rm.ActiveTrade(x.TradeID)
	if !ok {
		e.log.Error("exit for unknown trade", "trade", x.TradeID, "symbol", x.Symbol)
		e.alertError(ctx, map[string]any{"stage": "exit", "trade": x.TradeID, "error": "unknown trade"})
		return
	}
	o := e.orderForTrade(x.TradeID)
	if o == nil || e.parked[o.ID] {
		return
	}

	switch o.State() {
	case order.Placed:
		// Never filled; cancel locally and release the reservation.
		if err := o.Transition(order.Cancelled, now); err != nil {
			e.park(ctx, o, err)
			return
		}
		if err := e.rm.RegisterClose(x.TradeID, 0, now); err != nil {
			e.log.Error("cancel close failed", "order", o.ID, "err", err)
		}
		e.log.Info("unfilled order cancelled", "order", o.ID, "reason", x.Reason)
		e.emit(ctx, o, "")
		e.forget(o)

	case order.Filled, order.PartiallyFilled:
		deal, err := e.gw.ClosePosition(ctx, o.TradeID)
		if err != nil {
			e.log.Error("close failed", "trade", x.TradeID, "err", err)
			e.alertError(ctx, map[string]any{"stage": "close", "trade": x.TradeID, "error": err.Error()})
			return
		}
		at := deal.At
		if at.IsZero() {
			at = now
		}
		if o.State() == order.PartiallyFilled {
			// The venue closed the filled portion and dropped the rest.
			if err := o.Transition(order.Filled, at); err != nil {
				e.park(ctx, o, err)
				return
			}
		}
		if err := o.Transition(order.Closed, at); err != nil {
			e.park(ctx, o, err)
			return
		}
		if err := e.rm.RegisterClose(x.TradeID, deal.RealizedPnL, at); err != nil {
			e.log.Error("ledger close failed", "trade", x.TradeID, "err", err)
		}
		e.met.ClosesTotal.Inc()

		if err := e.jrn.RecordTrade(journal.TradeRecord{
			TradeID:     o.TradeID,
			Symbol:      o.Symbol,
			Side:        string(o.Side),
			Lots:        o.Lots,
			RiskAmount:  t.RiskAmount,
			RealizedPnL: deal.RealizedPnL,
			OpenTime:    t.OpenedAt,
			CloseTime:   at,
			Reason:      x.Reason,
		}); err != nil {
			e.log.Error("trade journal write failed", "trade", o.TradeID, "err", err)
		}

		e.log.Info("trade closed",
			"trade", o.TradeID, "symbol", o.Symbol, "pnl", deal.RealizedPnL, "reason", x.Reason)
		e.emit(ctx, o, fmt.Sprintf(`{"pnl":%g,"reason":%q}`, deal.RealizedPnL, x.Reason))
		e.forget(o)

	default:
		e.log.Warn("exit ignored", "trade", x.TradeID, "state", o.State())
	}
}

// emit drains the order's unjournaled transitions: one journal row and one
// alert per transition, then the cursor advances. A journal failure logs
// and still advances, the async writer owns retry.
func (e *Engine) emit(ctx context.Context, o *order.Order, payload string) {
	trs := o.Unjournaled()
	for _, tr := range trs {
		if err := e.jrn.RecordTransition(journal.TransitionRecord{
			OrderID: o.ID,
			TradeID: o.TradeID,
			Symbol:  o.Symbol,
			From:    tr.From,
			To:      tr.To,
			At:      tr.At,
			Payload: payload,
		}); err != nil {
			e.log.Error("journal write failed", "order", o.ID, "err", err)
		}
		_ = e.alerts.Send(ctx, kindFor(tr.To), map[string]any{
			"order":  o.ID,
			"trade":  o.TradeID,
			"symbol": o.Symbol,
			"side":   string(o.Side),
			"lots":   o.Lots,
			"state":  string(tr.To),
		})
	}
	o.MarkJournaled(len(trs))
}

func kindFor(s order.State) alert.Kind {
	switch s {
	case order.Placed:
		return alert.KindSignal
	case order.PartiallyFilled, order.Filled, order.Closed:
		return alert.KindFill
	default:
		return alert.KindError
	}
}

// park freezes a single order after a consistency fault. The engine keeps
// running; only this order stops moving.
func (e *Engine) park(ctx context.Context, o *order.Order, cause error) {
	e.parked[o.ID] = true
	e.log.Error("order parked",
		"order", o.ID, "trade", o.TradeID, "state", o.State(), "err", cause)
	e.alertError(ctx, map[string]any{
		"stage": "consistency",
		"order": o.ID,
		"state": string(o.State()),
		"error": cause.Error(),
	})
}

func (e *Engine) alertError(ctx context.Context, payload map[string]any) {
	_ = e.alerts.Send(ctx, alert.KindError, payload)
}

// forget drops a terminal, fully journaled order from the live table. The
// idempotency key stays mapped until rollover so the signal cannot re-enter.
func (e *Engine) forget(o *order.Order) {
	delete(e.orders, o.ID)
	delete(e.venueIDs, o.ID)
	delete(e.pending, o.ID)
	delete(e.parked, o.ID)
}

// pendingAdmissions sums the admitted-but-unacked orders still waiting on
// the venue, typically across retry backoff windows.
func (e *Engine) pendingAdmissions() (int, float64) {
	var total float64
	for _, r := range e.pending {
		total += r
	}
	return len(e.pending), total
}

func (e *Engine) orderForTrade(tradeID string) *order.Order {
	for _, o := range e.orders {
		if o.TradeID == tradeID {
			return o
		}
	}
	return nil
}

func (e *Engine) publishGauges() {
	snap := e.rm.Snapshot()
	e.met.OpenTrades.Set(float64(snap.ActiveTrades))
	e.met.DailyRiskUsed.Set(snap.DailyRiskUsed)
}

// Orders reports the number of live (non-terminal) orders.
func (e *Engine) Orders() int { return len(e.orders) }
