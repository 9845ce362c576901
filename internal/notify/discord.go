package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embed sidebar colors per event class.
const (
	discordColorOpportunity = 0x3498db // blue
	discordColorTrade       = 0x2ecc71 // green
	discordColorBreaker     = 0xe74c3c // red
	discordColorDefault     = 0x95a5a6 // grey
)

// DiscordSender delivers notifications via a Discord webhook, rendered as an
// embed whose sidebar color reflects the event class so halts stand out in a
// channel full of trade chatter.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses
// a default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

func discordColor(e Event) int {
	switch e {
	case EventOpportunity:
		return discordColorOpportunity
	case EventTrade:
		return discordColorTrade
	case EventCircuitBreaker:
		return discordColorBreaker
	default:
		return discordColorDefault
	}
}

// Send posts the notification to the Discord webhook as a single embed.
func (d *DiscordSender) Send(ctx context.Context, n Notification) error {
	payload := map[string]any{
		"embeds": []discordEmbed{{
			Title:       n.Title,
			Description: n.Body,
			Color:       discordColor(n.Event),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
