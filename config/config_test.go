package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:  "single service - verify-runner",
			input: "verify-runner",
			expected: map[ServiceMode]bool{
				ServiceModeVerifyRunner: true,
			},
			expectError: false,
		},
		{
			name:  "multiple services",
			input: "http,verify-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:         true,
				ServiceModeVerifyRunner: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , verify-runner ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:         true,
				ServiceModeVerifyRunner: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http,verify-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:         true,
				ServiceModeVerifyRunner: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name                 string
		services             string
		expectedHTTP         bool
		expectedVerifyRunner bool
	}{
		{
			name:                 "default - http only",
			services:             "http",
			expectedHTTP:         true,
			expectedVerifyRunner: false,
		},
		{
			name:                 "both services",
			services:             "http,verify-runner",
			expectedHTTP:         true,
			expectedVerifyRunner: true,
		},
		{
			name:                 "verify-runner only",
			services:             "verify-runner",
			expectedHTTP:         false,
			expectedVerifyRunner: true,
		},
		{
			name:                 "invalid configuration disables everything",
			services:             "invalid-service",
			expectedHTTP:         false,
			expectedVerifyRunner: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if cfg.IsHTTPServerEnabled() != tt.expectedHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.expectedHTTP, cfg.IsHTTPServerEnabled())
			}

			if cfg.IsVerifyRunnerEnabled() != tt.expectedVerifyRunner {
				t.Errorf(
					"IsVerifyRunnerEnabled(): expected %v, got %v",
					tt.expectedVerifyRunner,
					cfg.IsVerifyRunnerEnabled(),
				)
			}
		})
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "oauth")
	t.Setenv("ADMIN_GROUP", "cn=admins,ou=groups,dc=example,dc=org")
	t.Setenv("USER_GROUP", "cn=users,ou=groups,dc=example,dc=org")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://app.example.com/auth/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid profile email")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_GROUPS", "admins;devs")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeOAuth,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://app.example.com/auth/callback",
			Scope:        "openid profile email",
			DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
		},
		DevAuth: DevAuthConfig{
			UserID: "dev-user",
			Email:  "dev@example.com",
			Groups: []string{"admins", "devs"},
		},
		AdminGroup: "cn=admins,ou=groups,dc=example,dc=org",
		UserGroup:  "cn=users,ou=groups,dc=example,dc=org",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	var mode AuthMode
	if err := mode.UnmarshalText([]byte("MOCK")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != AuthModeMock {
		t.Fatalf("expected mock mode, got %q", mode)
	}

	if err := mode.UnmarshalText([]byte("saml")); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestVerifyRunConfig_Sanitize(t *testing.T) {
	cfg := VerifyRunConfig{
		Interval:        time.Second,
		Concurrency:     0,
		Lookback:        time.Minute,
		LookupTimeout:   0,
		BatchLimit:      0,
		MaxErrorSamples: -5,
	}

	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Errorf("expected interval clamped to 1m, got %v", cfg.Interval)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("expected concurrency clamped to 1, got %d", cfg.Concurrency)
	}
	if cfg.Lookback != time.Hour {
		t.Errorf("expected lookback clamped to 1h, got %v", cfg.Lookback)
	}
	if cfg.LookupTimeout != time.Second {
		t.Errorf("expected lookup timeout clamped to 1s, got %v", cfg.LookupTimeout)
	}
	if cfg.BatchLimit != 1 {
		t.Errorf("expected batch limit clamped to 1, got %d", cfg.BatchLimit)
	}
	if cfg.MaxErrorSamples != 1 {
		t.Errorf("expected max error samples clamped to 1, got %d", cfg.MaxErrorSamples)
	}

	cfg = VerifyRunConfig{
		Interval:        2 * time.Hour,
		Concurrency:     10,
		Lookback:        24 * time.Hour,
		LookupTimeout:   15 * time.Second,
		BatchLimit:      50000,
		MaxErrorSamples: 25,
	}

	cfg.Sanitize()

	if cfg.BatchLimit != 10000 {
		t.Errorf("expected batch limit capped at 10000, got %d", cfg.BatchLimit)
	}
	if cfg.Interval != 2*time.Hour || cfg.Concurrency != 10 || cfg.MaxErrorSamples != 25 {
		t.Error("expected in-range values to be preserved")
	}
}

func TestMetricsConfig_Sanitize(t *testing.T) {
	cfg := MetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = MetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:8125 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:8125" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestNotificationsConfig_Sanitize(t *testing.T) {
	cfg := NotificationsConfig{
		Enabled: true,
		Timeout: 0,
		Slack: SlackNotifierConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.Slack.Username != "licensure" {
		t.Fatalf("expected slack username default, got %q", cfg.Slack.Username)
	}

	// Disabled top-level should disable child sinks.
	cfg = NotificationsConfig{
		Enabled: false,
		Timeout: time.Second,
		Slack: SlackNotifierConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeVerifyRunner,
	}

	if len(modes) != len(expected) {
		t.Errorf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}
