package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// Event classifies a notification for operator filtering.
type Event string

const (
	EventOpportunity    Event = "opportunity"
	EventTrade          Event = "trade"
	EventCircuitBreaker Event = "circuit_breaker"
)

// EventNotifier formats arbitrage lifecycle events into notifications and
// hands them to the underlying Notifier for dispatch. It implements
// domain.Notifier.
type EventNotifier struct {
	notifier *Notifier
	logger   *slog.Logger
}

// NewEventNotifier wraps a Notifier with arbitrage event formatting.
func NewEventNotifier(notifier *Notifier, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{
		notifier: notifier,
		logger:   logger.With(slog.String("component", "event_notifier")),
	}
}

// OpportunityFound reports a ranked opportunity selected for execution.
func (e *EventNotifier) OpportunityFound(ctx context.Context, opp domain.RankedOpportunity) {
	note := Notification{
		Event: EventOpportunity,
		Title: fmt.Sprintf("Opportunity: %s", opp.Result.Path.Describe()),
		Body: fmt.Sprintf(
			"net profit $%.2f | score %.2f | priority %s | risk %s | trade size $%.0f",
			opp.Result.NetProfitUSD, opp.Score, opp.Priority, opp.Risk, opp.TradeAmountUSD,
		),
	}
	if err := e.notifier.Notify(ctx, note); err != nil {
		e.logger.WarnContext(ctx, "opportunity notification failed",
			slog.String("opportunity_id", opp.ID),
			slog.String("error", err.Error()),
		)
	}
}

// TradeExecuted reports the outcome of an executed trade.
func (e *EventNotifier) TradeExecuted(ctx context.Context, result domain.TradeResult) {
	status := "SUCCESS"
	if !result.Success {
		status = "FAILED"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "path %s | profit $%.2f | gas $%.2f", result.PathID, result.ProfitUSD, result.GasCostUSD)
	if result.TxHash != "" {
		fmt.Fprintf(&sb, " | tx %s", result.TxHash)
	}
	if result.FailureReason != "" {
		fmt.Fprintf(&sb, " | reason: %s", result.FailureReason)
	}

	note := Notification{
		Event: EventTrade,
		Title: fmt.Sprintf("Trade %s", status),
		Body:  sb.String(),
	}
	if err := e.notifier.Notify(ctx, note); err != nil {
		e.logger.WarnContext(ctx, "trade notification failed",
			slog.String("opportunity_id", result.OpportunityID),
			slog.String("error", err.Error()),
		)
	}
}

// CircuitBreakerTripped reports that trading has been halted. The breaker
// event is urgent, so it reaches operators regardless of the event filter.
func (e *EventNotifier) CircuitBreakerTripped(ctx context.Context, reason string, metrics domain.RiskMetrics) {
	note := Notification{
		Event: EventCircuitBreaker,
		Title: "Circuit breaker tripped",
		Body: fmt.Sprintf(
			"reason: %s | daily loss $%.2f | consecutive failures %d | daily gas $%.2f",
			reason, metrics.DailyLossUSD, metrics.ConsecutiveFailures, metrics.DailyGasSpendUSD,
		),
	}
	if err := e.notifier.Notify(ctx, note); err != nil {
		e.logger.WarnContext(ctx, "circuit breaker notification failed",
			slog.String("error", err.Error()),
		)
	}
}
