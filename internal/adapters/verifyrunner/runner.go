// Package verifyrunner runs the batch verification job on an interval. It is
// the long-running counterpart of the HTTP trigger endpoint; both call the
// same service.
package verifyrunner

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/caretrack/licensure/internal/domain/model"
	obserrors "github.com/caretrack/licensure/internal/observability/errors"
	"github.com/caretrack/licensure/internal/observability/metrics"
	"github.com/caretrack/licensure/internal/observability/notify"
	"github.com/caretrack/licensure/internal/observability/statsd"
)

// JobRunner is the slice of the verification service the loop needs.
type JobRunner interface {
	Run(ctx context.Context) (*model.RunSummary, error)
}

// Options holds the dependencies for creating a Runner.
type Options struct {
	Job      JobRunner
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
	// Notifier receives run failures; nil disables notifications.
	Notifier notify.Sink
	// RunTimeout bounds one pass; zero means no per-pass deadline.
	RunTimeout time.Duration
}

// Runner executes the batch verification job at a fixed interval until its
// context is canceled. A failing pass is logged, counted, and notified, never
// fatal.
type Runner struct {
	job        JobRunner
	interval   time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
	notifier   notify.Sink
	runTimeout time.Duration
}

// NewRunner creates a runner with the given options.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Job == nil {
		return nil, errors.New("job runner is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		job:        opts.Job,
		interval:   interval,
		logger:     logger.With("component", "verify_runner"),
		metrics:    opts.Metrics,
		notifier:   opts.Notifier,
		runTimeout: opts.RunTimeout,
	}, nil
}

// Run executes one pass immediately, then keeps ticking until ctx is
// canceled. Cancellation is a clean shutdown, not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "verify runner starting", "interval", r.interval)

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "verify runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := r.job.Run(runCtx)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.ErrorContext(ctx, "verification pass failed", "error", err, "elapsed", elapsed)
		metrics.EmitRun(r.metrics, metrics.RunMetric{
			Result:   metrics.ResultError,
			Duration: elapsed,
			Err:      err,
		})
		r.notifyFailure(ctx, summary, err)
		return
	}

	result := metrics.ResultSuccess
	if summary.Processed == 0 {
		result = metrics.ResultNoop
	}
	metrics.EmitRun(r.metrics, metrics.RunMetric{
		Result:       result,
		Processed:    summary.Processed,
		AutoVerified: summary.AutoVerified,
		TasksCreated: summary.TasksCreated,
		Errors:       summary.Errors,
		Duration:     elapsed,
	})
	r.logger.InfoContext(ctx, "verification pass finished",
		"processed", summary.Processed,
		"auto_verified", summary.AutoVerified,
		"tasks_created", summary.TasksCreated,
		"errors", summary.Errors,
		"elapsed", elapsed)
}

func (r *Runner) notifyFailure(ctx context.Context, summary *model.RunSummary, runErr error) {
	if r.notifier == nil {
		return
	}

	payload := notify.RunFailurePayload{
		Status:     string(model.JobRunStatusFailed),
		Error:      runErr.Error(),
		ErrorClass: obserrors.Classify(runErr),
		Severity:   notify.SeverityCritical,
		OccurredAt: time.Now().UTC(),
	}
	if summary != nil {
		payload.RunID = summary.JobRunID
		payload.Processed = summary.Processed
		payload.Errors = summary.Errors
		payload.Metadata = map[string]string{
			"tasks_created": strconv.Itoa(summary.TasksCreated),
		}
	}
	if err := r.notifier.SendRunFailure(ctx, payload); err != nil {
		r.logger.WarnContext(ctx, "run failure notification failed", "error", err)
	}
}
