package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sumire/pouchlog/internal/domain"
)

// Embed is a Discord webhook embed object.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedFooter is the footer line of an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// DiscordClient posts embeds to Discord-compatible webhook URLs.
type DiscordClient struct {
	httpClient *http.Client
}

// NewDiscordClient creates a client with a bounded request timeout.
func NewDiscordClient() *DiscordClient {
	return &DiscordClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one embed to the webhook URL. A non-2xx response is an error.
func (c *DiscordClient) Send(ctx context.Context, webhookURL string, embed Embed) error {
	body, err := json.Marshal(webhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// EmbedColor maps a notification category to its embed accent color.
func EmbedColor(category domain.Category) int {
	switch category {
	case domain.CategoryGoalReminder:
		return 0x3b82f6
	case domain.CategoryDailyReminder:
		return 0x10b981
	case domain.CategoryWeeklyReport:
		return 0x8b5cf6
	case domain.CategoryAchievement:
		return 0xf59e0b
	default:
		return 0x6b7280
	}
}
