package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caretrack/licensure/internal/adapters/verifyrunner"
	"github.com/caretrack/licensure/internal/observability/notify"
	"github.com/caretrack/licensure/internal/observability/statsd"
	"github.com/caretrack/licensure/internal/service"
)

// VerifyRunnerConfig contains configuration for the verify runner.
type VerifyRunnerConfig struct {
	Job      *service.VerifyJobService
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Notifier notify.Sink
	// RunTimeout bounds one pass; zero means no per-pass deadline.
	RunTimeout time.Duration
}

// RunVerifyRunner starts the periodic verification runner. It blocks until
// the context is canceled or the runner fails to start.
func RunVerifyRunner(ctx context.Context, cfg VerifyRunnerConfig) error {
	runner, err := verifyrunner.NewRunner(verifyrunner.Options{
		Job:        cfg.Job,
		Interval:   cfg.Interval,
		Logger:     cfg.Logger,
		Metrics:    cfg.Metrics,
		Notifier:   cfg.Notifier,
		RunTimeout: cfg.RunTimeout,
	})
	if err != nil {
		return fmt.Errorf("create verify runner: %w", err)
	}

	return runner.Run(ctx)
}
