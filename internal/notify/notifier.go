// Package notify delivers arbitrage lifecycle alerts (opportunities, trade
// outcomes, circuit-breaker halts) to operator channels such as Telegram and
// Discord. Routine events can be filtered per deployment; halts cannot.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Notification is one operator alert. Senders use the event to pick
// channel-specific presentation (colors, sound) and the urgency to decide
// whether the alert may be delivered silently.
type Notification struct {
	Event Event
	Title string
	Body  string
}

// Urgent reports whether the notification must interrupt the operator.
// Circuit-breaker halts are the only urgent class: trading has stopped and
// someone needs to look at it.
func (n Notification) Urgent() bool {
	return n.Event == EventCircuitBreaker
}

// Sender is one delivery channel for notifications.
type Sender interface {
	Send(ctx context.Context, n Notification) error
	// Name identifies the channel in logs and dispatch errors.
	Name() string
}

// Notifier fans a Notification out to every configured Sender. Operators can
// restrict delivery to a subset of events; circuit-breaker halts ignore the
// restriction and are always delivered.
type Notifier struct {
	senders []Sender
	allowed map[Event]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. If events is
// empty every event class is delivered; otherwise only the listed classes
// pass the filter. EventCircuitBreaker is delivered either way.
func NewNotifier(senders []Sender, events []Event, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(string(e)))] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers note to all senders, subject to the event filter. Urgent
// notifications bypass the filter entirely.
func (n *Notifier) Notify(ctx context.Context, note Notification) error {
	if !note.Urgent() && len(n.allowed) > 0 && !n.allowed[note.Event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(note.Event)),
		)
		return nil
	}
	return n.dispatch(ctx, note)
}

// dispatch walks the sender list in order. A failing sender is logged and
// noted but never blocks delivery to the remaining senders; the combined
// failure set comes back as a single error.
func (n *Notifier) dispatch(ctx context.Context, note Notification) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", string(note.Event)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", note.Title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
