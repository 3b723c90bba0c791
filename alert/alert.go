// Package alert delivers best-effort notifications for engine events.
// Delivery failures are logged, never surfaced to the trading loop.
package alert

import (
	"context"
	"log/slog"
)

// Kind classifies a notification.
type Kind string

const (
	KindSignal        Kind = "signal"
	KindFill          Kind = "fill"
	KindRiskRejection Kind = "risk_rejection"
	KindError         Kind = "error"
)

// Notifier is one delivery channel.
type Notifier interface {
	Send(ctx context.Context, kind Kind, payload map[string]any) error
	Name() string
}

// Service fans out to all configured notifiers. It implements Notifier
// itself so the engine holds a single handle.
type Service struct {
	notifiers []Notifier
	log       *slog.Logger
}

func NewService(log *slog.Logger, notifiers ...Notifier) *Service {
	return &Service{notifiers: notifiers, log: log}
}

func (s *Service) Name() string { return "service" }

// Send delivers to every channel. Failures are logged and swallowed; the
// aggregate error is always nil so callers cannot accidentally treat alert
// delivery as fatal.
func (s *Service) Send(ctx context.Context, kind Kind, payload map[string]any) error {
	for _, n := range s.notifiers {
		if err := n.Send(ctx, kind, payload); err != nil {
			s.log.Warn("alert delivery failed", "notifier", n.Name(), "kind", string(kind), "err", err)
		}
	}
	return nil
}

// Noop drops everything. Used when alerting is disabled.
type Noop struct{}

func (Noop) Send(ctx context.Context, kind Kind, payload map[string]any) error { return nil }
func (Noop) Name() string                                                      { return "noop" }
