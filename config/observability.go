package config

import (
	"strings"
	"time"
)

// MetricsConfig controls statsd metric emission.
type MetricsConfig struct {
	Enabled       bool   `env:"ENABLED" envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalizes the metrics config and disables metrics when no
// statsd address is configured.
func (m *MetricsConfig) Sanitize() {
	m.StatsdAddress = strings.TrimSpace(m.StatsdAddress)
	if m.StatsdAddress == "" {
		m.Enabled = false
	}
}

// IsEnabled reports whether metrics should be emitted.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled && m.StatsdAddress != ""
}

// SlackNotifierConfig configures the Slack webhook failure notifier.
type SlackNotifierConfig struct {
	Enabled    bool   `env:"ENABLED" envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME" envDefault:"licensure"`
}

// IsEnabled reports whether the Slack notifier is usable.
func (s SlackNotifierConfig) IsEnabled() bool {
	return s.Enabled && strings.TrimSpace(s.WebhookURL) != ""
}

// NotificationsConfig groups failure notification settings.
type NotificationsConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	Slack SlackNotifierConfig `envPrefix:"SLACK_"`
}

// Sanitize applies guardrails to notification settings. A Slack sink
// without a webhook URL, or under a disabled top-level flag, is disabled.
func (n *NotificationsConfig) Sanitize() {
	if n.Timeout <= 0 {
		n.Timeout = 5 * time.Second
	}
	n.Slack.WebhookURL = strings.TrimSpace(n.Slack.WebhookURL)
	n.Slack.Channel = strings.TrimSpace(n.Slack.Channel)
	if strings.TrimSpace(n.Slack.Username) == "" {
		n.Slack.Username = "licensure"
	}
	if n.Slack.WebhookURL == "" || !n.Enabled {
		n.Slack.Enabled = false
	}
}

// ObservabilityConfig groups metrics and notification configuration.
type ObservabilityConfig struct {
	Metrics       MetricsConfig       `envPrefix:"OBSERVABILITY_METRICS_"`
	Notifications NotificationsConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_"`
}

// Sanitize applies guardrails to all observability settings.
func (o *ObservabilityConfig) Sanitize() {
	o.Metrics.Sanitize()
	o.Notifications.Sanitize()
}
