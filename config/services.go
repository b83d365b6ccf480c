package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeVerifyRunner runs the periodic license verification runner.
	ServiceModeVerifyRunner ServiceMode = "verify-runner"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeVerifyRunner}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. Unknown names are an error.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeVerifyRunner:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, verify-runner)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// VerifyRunConfig contains the batch verification run configuration.
type VerifyRunConfig struct {
	// Interval is how often the verify runner executes a pass.
	Interval time.Duration `env:"VERIFY_RUN_INTERVAL" envDefault:"1h"`

	// Concurrency is the number of licenses looked up in parallel.
	Concurrency int `env:"VERIFY_RUN_CONCURRENCY" envDefault:"5"`

	// Lookback is how long a verification stays fresh; licenses verified
	// more recently than this are skipped.
	Lookback time.Duration `env:"VERIFY_RUN_LOOKBACK" envDefault:"720h"` // 30 days

	// LookupTimeout bounds a single source lookup.
	LookupTimeout time.Duration `env:"VERIFY_RUN_LOOKUP_TIMEOUT" envDefault:"30s"`

	// BatchLimit is the maximum number of licenses processed per run.
	BatchLimit int `env:"VERIFY_RUN_BATCH_LIMIT" envDefault:"500"`

	// MaxErrorSamples caps the error messages kept on a run summary.
	MaxErrorSamples int `env:"VERIFY_RUN_MAX_ERROR_SAMPLES" envDefault:"10"`

	// RunSecret authenticates machine callers of POST /api/verify-runs.
	// Empty disables the trigger endpoint.
	RunSecret string `env:"VERIFY_RUN_SECRET"`
}

// Sanitize applies guardrails to verification run configuration values.
func (v *VerifyRunConfig) Sanitize() {
	if v.Interval < time.Minute {
		v.Interval = time.Minute
	}
	if v.Concurrency < 1 {
		v.Concurrency = 1
	}
	if v.Lookback < time.Hour {
		v.Lookback = time.Hour
	}
	if v.LookupTimeout < time.Second {
		v.LookupTimeout = time.Second
	}
	if v.BatchLimit < 1 {
		v.BatchLimit = 1
	}
	if v.BatchLimit > 10000 {
		v.BatchLimit = 10000
	}
	if v.MaxErrorSamples < 1 {
		v.MaxErrorSamples = 1
	}
}
