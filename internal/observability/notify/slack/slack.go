// Package slack posts verification run failures to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caretrack/licensure/internal/observability/notify"
)

// Config describes the webhook destination.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client posts run failure notifications to Slack.
type Client struct {
	webhookURL string
	channel    string
	username   string
	http       *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient validates the config and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, errors.New("slack webhook URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "licensure"
	}
	return &Client{
		webhookURL: url,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   username,
		http:       httpClient,
	}, nil
}

// SendRunFailure posts one run failure message.
func (c *Client) SendRunFailure(ctx context.Context, payload notify.RunFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) formatMessage(payload notify.RunFailurePayload) map[string]any {
	var text strings.Builder
	severity := payload.Severity
	if severity == "" {
		severity = notify.SeverityWarning
	}
	fmt.Fprintf(&text, ":rotating_light: *Verification run failure* (%s)\n", severity)
	appendField(&text, "Run", payload.RunID)
	appendField(&text, "Status", payload.Status)
	if payload.Processed > 0 || payload.Errors > 0 {
		appendField(&text, "Processed", fmt.Sprintf("%d (%d errors)", payload.Processed, payload.Errors))
	}
	appendField(&text, "Error", escapeText(payload.Error))
	appendField(&text, "Class", payload.ErrorClass)
	for k, v := range payload.Metadata {
		appendField(&text, k, escapeText(v))
	}
	if !payload.OccurredAt.IsZero() {
		appendField(&text, "At", payload.OccurredAt.UTC().Format(time.RFC3339))
	}

	msg := map[string]any{
		"username": c.username,
		"text":     text.String(),
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func appendField(text *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(text, "• *%s*: %s\n", label, value)
}

// escapeText neutralizes the characters Slack treats as markup.
func escapeText(value string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(value)
}
