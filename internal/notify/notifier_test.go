package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
)

type fakeSender struct {
	name  string
	err   error
	notes []Notification
}

func (s *fakeSender) Send(ctx context.Context, n Notification) error {
	if s.err != nil {
		return s.err
	}
	s.notes = append(s.notes, n)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func notifyTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []Event{EventTrade}, notifyTestLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, Notification{Event: EventOpportunity, Title: "skip"}))
	assert.Empty(t, sender.notes)

	require.NoError(t, n.Notify(ctx, Notification{Event: EventTrade, Title: "keep"}))
	require.Len(t, sender.notes, 1)
	assert.Equal(t, "keep", sender.notes[0].Title)
}

func TestNotifyEmptyEventListAllowsEverything(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, notifyTestLogger())

	require.NoError(t, n.Notify(context.Background(), Notification{Event: Event("anything"), Title: "t"}))
	assert.Len(t, sender.notes, 1)
}

func TestNotifyBreakerEventBypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []Event{EventTrade}, notifyTestLogger())

	note := Notification{Event: EventCircuitBreaker, Title: "halt", Body: "always delivered"}
	require.NoError(t, n.Notify(context.Background(), note))
	require.Len(t, sender.notes, 1)
	assert.Equal(t, "halt", sender.notes[0].Title)
	assert.True(t, sender.notes[0].Urgent())
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	broken := &fakeSender{name: "telegram", err: errors.New("429 too many requests")}
	working := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, notifyTestLogger())

	err := n.Notify(context.Background(), Notification{Event: EventTrade, Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, working.notes, 1, "the healthy sender still delivers")
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, notifyTestLogger())
	assert.NoError(t, n.Notify(context.Background(), Notification{Event: EventTrade, Title: "t"}))
}

func TestEventNotifierTradeExecuted(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []Event{EventTrade}, notifyTestLogger())
	e := NewEventNotifier(n, notifyTestLogger())
	ctx := context.Background()

	e.TradeExecuted(ctx, domain.TradeResult{
		PathID:     "xv-1",
		Success:    true,
		ProfitUSD:  12.5,
		GasCostUSD: 0.5,
		TxHash:     "0xabc",
	})
	require.Len(t, sender.notes, 1)
	assert.Equal(t, "Trade SUCCESS", sender.notes[0].Title)
	assert.Equal(t, EventTrade, sender.notes[0].Event)
	assert.Contains(t, sender.notes[0].Body, "path xv-1")
	assert.Contains(t, sender.notes[0].Body, "profit $12.50")
	assert.Contains(t, sender.notes[0].Body, "tx 0xabc")

	e.TradeExecuted(ctx, domain.TradeResult{
		PathID:        "xv-2",
		Success:       false,
		GasCostUSD:    0.5,
		FailureReason: "reverted",
	})
	require.Len(t, sender.notes, 2)
	assert.Equal(t, "Trade FAILED", sender.notes[1].Title)
	assert.Contains(t, sender.notes[1].Body, "reason: reverted")
	assert.NotContains(t, sender.notes[1].Body, "tx ")
}

func TestEventNotifierOpportunityRespectsFilter(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []Event{EventTrade}, notifyTestLogger())
	e := NewEventNotifier(n, notifyTestLogger())

	e.OpportunityFound(context.Background(), domain.RankedOpportunity{
		ID: "opp-1",
		Result: domain.SimulationResult{
			Path: domain.ArbitragePath{
				Kind:   domain.PathCrossVenue,
				Tokens: []domain.Token{{Symbol: "WMATIC"}, {Symbol: "USDC"}},
				Venues: []string{"quickswap", "sushiswap"},
			},
			NetProfitUSD: 25,
		},
		Score:    40,
		Priority: domain.PriorityMedium,
		Risk:     domain.RiskLow,
	})
	assert.Empty(t, sender.notes, "opportunity events are filtered out")
}

func TestEventNotifierCircuitBreakerBypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []Event{EventTrade}, notifyTestLogger())
	e := NewEventNotifier(n, notifyTestLogger())

	e.CircuitBreakerTripped(context.Background(), "3 consecutive failures", domain.RiskMetrics{
		DailyLossUSD:        42,
		ConsecutiveFailures: 3,
	})
	require.Len(t, sender.notes, 1)
	assert.Equal(t, "Circuit breaker tripped", sender.notes[0].Title)
	assert.Contains(t, sender.notes[0].Body, "3 consecutive failures")
	assert.Contains(t, sender.notes[0].Body, "daily loss $42.00")
}

func TestTelegramSenderPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/bottoken-123/sendMessage")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("token-123", "chat-9")
	s.apiBase = srv.URL

	note := Notification{Event: EventTrade, Title: "Trade SUCCESS", Body: "profit $1.00"}
	require.NoError(t, s.Send(context.Background(), note))
	assert.Equal(t, "chat-9", got["chat_id"])
	assert.Equal(t, "*Trade SUCCESS*\nprofit $1.00", got["text"])
	assert.Equal(t, true, got["disable_notification"], "routine events deliver silently")

	note = Notification{Event: EventCircuitBreaker, Title: "Circuit breaker tripped", Body: "halted"}
	require.NoError(t, s.Send(context.Background(), note))
	assert.Equal(t, false, got["disable_notification"], "halts ring the operator")
}

func TestTelegramSenderNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewTelegramSender("token-123", "chat-9")
	s.apiBase = srv.URL

	err := s.Send(context.Background(), Notification{Event: EventTrade, Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestDiscordSenderEmbedColors(t *testing.T) {
	var got struct {
		Embeds []discordEmbed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)

	require.NoError(t, s.Send(context.Background(), Notification{
		Event: EventCircuitBreaker,
		Title: "Circuit breaker tripped",
		Body:  "halted",
	}))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Circuit breaker tripped", got.Embeds[0].Title)
	assert.Equal(t, discordColorBreaker, got.Embeds[0].Color)
	assert.NotEmpty(t, got.Embeds[0].Timestamp)

	require.NoError(t, s.Send(context.Background(), Notification{Event: EventTrade, Title: "Trade SUCCESS"}))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, discordColorTrade, got.Embeds[0].Color)
}
