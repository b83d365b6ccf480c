package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/domain/verify"
	apperrors "github.com/caretrack/licensure/internal/errors"
	"github.com/caretrack/licensure/internal/sources"
)

const (
	defaultRunConcurrency  = 5
	defaultLookback        = 30 * 24 * time.Hour
	defaultLookupTimeout   = 30 * time.Second
	defaultBatchLimit      = 500
	defaultMaxErrorSamples = 10

	// systemActor marks automated writes in verification and audit rows.
	systemActor = "system"
)

// VerifierProvider resolves the adapter for a source spec.
type VerifierProvider interface {
	VerifierFor(spec *sources.Spec) (sources.Verifier, error)
}

// VerifyJobServiceOptions groups dependencies for VerifyJobService.
type VerifyJobServiceOptions struct {
	Licenses  core.LicenseRepository
	Runs      core.JobRunRepository
	Registry  *sources.Registry
	Verifiers VerifierProvider
	Recorder  *RecorderService
	Tasks     *TaskEngine
	Audit     core.AuditRepository

	TimeProvider data.TimeProvider
	Logger       *slog.Logger

	// Concurrency bounds simultaneous source lookups; defaults to 5.
	Concurrency int
	// Lookback is how stale a license's last verification may be before it is
	// due again; defaults to 30 days.
	Lookback time.Duration
	// LookupTimeout bounds each external lookup; defaults to 30s.
	LookupTimeout time.Duration
	// BatchLimit caps the work set of one run; defaults to 500.
	BatchLimit int
	// MaxErrorSamples caps the error strings kept on the run summary.
	MaxErrorSamples int
}

// VerifyJobService runs one batch verification pass: select due licenses,
// dispatch bounded-concurrency lookups, route each outcome, and keep the
// JobRun record honest. A failing license never takes the run down.
type VerifyJobService struct {
	licenses  core.LicenseRepository
	runs      core.JobRunRepository
	registry  *sources.Registry
	verifiers VerifierProvider
	recorder  *RecorderService
	tasks     *TaskEngine
	audit     core.AuditRepository

	timeProvider data.TimeProvider
	logger       *slog.Logger

	concurrency     int
	lookback        time.Duration
	lookupTimeout   time.Duration
	batchLimit      int
	maxErrorSamples int
}

// NewVerifyJobService constructs a new VerifyJobService.
func NewVerifyJobService(opts VerifyJobServiceOptions) *VerifyJobService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	s := &VerifyJobService{
		licenses:        opts.Licenses,
		runs:            opts.Runs,
		registry:        opts.Registry,
		verifiers:       opts.Verifiers,
		recorder:        opts.Recorder,
		tasks:           opts.Tasks,
		audit:           opts.Audit,
		timeProvider:    tp,
		logger:          logger.With("component", "verify_job"),
		concurrency:     opts.Concurrency,
		lookback:        opts.Lookback,
		lookupTimeout:   opts.LookupTimeout,
		batchLimit:      opts.BatchLimit,
		maxErrorSamples: opts.MaxErrorSamples,
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultRunConcurrency
	}
	if s.lookback <= 0 {
		s.lookback = defaultLookback
	}
	if s.lookupTimeout <= 0 {
		s.lookupTimeout = defaultLookupTimeout
	}
	if s.batchLimit <= 0 {
		s.batchLimit = defaultBatchLimit
	}
	if s.maxErrorSamples <= 0 {
		s.maxErrorSamples = defaultMaxErrorSamples
	}
	return s
}

// Run executes one batch pass over every license due for verification.
func (s *VerifyJobService) Run(ctx context.Context) (*model.RunSummary, error) {
	return s.run(ctx, func(ctx context.Context) ([]*model.License, error) {
		cutoff := s.timeProvider.Now().Add(-s.lookback)
		return s.licenses.FindDueForVerification(ctx, cutoff, s.batchLimit)
	})
}

// RunForLicense executes a pass over a single, explicitly chosen license,
// regardless of when it was last verified.
func (s *VerifyJobService) RunForLicense(ctx context.Context, licenseID string) (*model.RunSummary, error) {
	return s.run(ctx, func(ctx context.Context) ([]*model.License, error) {
		lic, err := s.licenses.GetByID(ctx, licenseID)
		if err != nil {
			if errors.Is(err, data.ErrLicenseNotFound) {
				return nil, apperrors.NotFoundf("license %s not found", licenseID)
			}
			return nil, err
		}
		return []*model.License{lic}, nil
	})
}

// GetRun fetches run metadata by ID.
func (s *VerifyJobService) GetRun(ctx context.Context, id string) (*model.JobRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobRunNotFound) {
			return nil, apperrors.NotFoundf("run %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return run, nil
}

// ListRuns returns run metadata, newest first.
func (s *VerifyJobService) ListRuns(ctx context.Context, limit, offset int) ([]*model.JobRun, error) {
	out, err := s.runs.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

type runCounters struct {
	mu           sync.Mutex
	autoVerified int
	tasksCreated int
	errored      int
	samples      []string
	maxSamples   int
}

func (c *runCounters) record(out outcome, sample string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch out {
	case outcomeAutoVerified:
		c.autoVerified++
	case outcomeTaskCreated:
		c.tasksCreated++
	case outcomeError:
		c.errored++
		if sample != "" && len(c.samples) < c.maxSamples {
			c.samples = append(c.samples, sample)
		}
	}
}

type outcome int

const (
	outcomeAutoVerified outcome = iota
	outcomeTaskCreated
	outcomeError
)

func (s *VerifyJobService) run(
	ctx context.Context,
	selectWork func(context.Context) ([]*model.License, error),
) (*model.RunSummary, error) {
	jobRun, err := s.runs.Create(ctx)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	if err := s.runs.MarkRunning(ctx, jobRun.ID, s.timeProvider.Now()); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	work, err := selectWork(ctx)
	if err != nil {
		s.finalize(ctx, jobRun.ID, model.JobRunStatusFailed, &runCounters{}, 0,
			fmt.Sprintf("select work set: %v", err))
		return nil, apperrors.MapDBError(err)
	}

	s.logger.InfoContext(ctx, "verification run started",
		"run_id", jobRun.ID, "licenses", len(work), "concurrency", s.concurrency)

	counters := &runCounters{maxSamples: s.maxErrorSamples}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, lic := range work {
		g.Go(func() error {
			out, sample := s.processOne(gctx, lic)
			counters.record(out, sample)
			return nil
		})
	}
	// Workers swallow their own failures; Wait only observes ctx cancellation.
	_ = g.Wait()

	// An interruption fails the run as a whole; it is not a per-license error
	// and must not disturb the outcome counters.
	status := model.JobRunStatusCompleted
	interruptErr := ctx.Err()
	if interruptErr != nil {
		status = model.JobRunStatusFailed
	}

	lastErr := ""
	if len(counters.samples) > 0 {
		lastErr = counters.samples[len(counters.samples)-1]
	}
	if interruptErr != nil {
		lastErr = fmt.Sprintf("run interrupted: %v", interruptErr)
	}

	// The run row and audit entry must survive the cancellation that killed
	// the run itself.
	finalizeCtx := context.WithoutCancel(ctx)
	s.finalize(finalizeCtx, jobRun.ID, status, counters, len(work), lastErr)

	summary := &model.RunSummary{
		JobRunID:     jobRun.ID,
		Processed:    len(work),
		AutoVerified: counters.autoVerified,
		TasksCreated: counters.tasksCreated,
		Errors:       counters.errored,
		ErrorSamples: counters.samples,
	}
	s.logger.InfoContext(finalizeCtx, "verification run finished",
		"run_id", jobRun.ID,
		"status", status,
		"processed", summary.Processed,
		"auto_verified", summary.AutoVerified,
		"tasks_created", summary.TasksCreated,
		"errors", summary.Errors)
	s.writeRunAudit(finalizeCtx, jobRun.ID, status, summary)

	if interruptErr != nil {
		code := apperrors.ErrCodeCanceled
		if errors.Is(interruptErr, context.DeadlineExceeded) {
			code = apperrors.ErrCodeTimeout
		}
		return summary, apperrors.Wrapf(interruptErr, code,
			"verification run %s interrupted", jobRun.ID)
	}
	return summary, nil
}

// processOne routes a single license through the pipeline. It never lets a
// panic or error escape; every path collapses into an outcome bucket.
func (s *VerifyJobService) processOne(ctx context.Context, lic *model.License) (out outcome, sample string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while processing license",
				"license_id", lic.ID, "panic", r)
			out = outcomeError
			sample = fmt.Sprintf("license %s: panic: %v", lic.ID, r)
		}
	}()

	capability := s.registry.CapabilityFor(lic.Jurisdiction)
	if !capability.Automated {
		return s.fallback(ctx, lic, nil, verify.ReasonUnsupported, "")
	}

	sourceID := capability.Spec.SourceID
	verifier, err := s.verifiers.VerifierFor(capability.Spec)
	if err != nil {
		return s.fallback(ctx, lic, &sourceID, verify.ReasonUnsupported, err.Error())
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	result, err := verifier.Lookup(lookupCtx, sources.Identity{
		Number:         lic.Number,
		FirstName:      lic.FirstName,
		LastName:       lic.LastName,
		Jurisdiction:   lic.Jurisdiction,
		CredentialType: lic.CredentialType,
	})
	if err != nil {
		return s.routeLookupFailure(ctx, lic, sourceID, err)
	}

	return s.recordLookup(ctx, lic, sourceID, result)
}

// routeLookupFailure handles a typed lookup failure. A definitive not_found is
// recorded as a verification event; transient and parse failures queue a
// fallback task and count as run errors, leaving the license untouched.
func (s *VerifyJobService) routeLookupFailure(
	ctx context.Context,
	lic *model.License,
	sourceID string,
	lookupErr error,
) (outcome, string) {
	switch sources.KindOf(lookupErr) {
	case sources.FailureNotFound:
		_, err := s.recorder.Record(ctx, &model.CreateVerificationRequest{
			LicenseID:   lic.ID,
			SourceID:    &sourceID,
			RunType:     model.RunTypeAutomated,
			Result:      model.ResultNotFound,
			StatusFound: model.LicenseStatusNeedsManual,
			Notes:       lookupErr.Error(),
			VerifiedBy:  systemActor,
			VerifiedAt:  s.timeProvider.Now(),
		})
		if err != nil {
			return outcomeError, fmt.Sprintf("license %s: record not_found: %v", lic.ID, err)
		}
		return outcomeError, fmt.Sprintf("license %s: not found at %s", lic.ID, sourceID)

	case sources.FailureUnsupported:
		return s.fallback(ctx, lic, &sourceID, verify.ReasonUnsupported, "")

	default: // transient, parse
		detail := lookupErr.Error()
		s.logger.WarnContext(ctx, "lookup failed",
			"license_id", lic.ID, "source_id", sourceID, "error", lookupErr)
		if _, _, err := s.tasks.EnsureTask(ctx, lic, &sourceID, verify.ReasonLookupFailed, detail); err != nil {
			return outcomeError, fmt.Sprintf("license %s: ensure task: %v", lic.ID, err)
		}
		return outcomeError, fmt.Sprintf("license %s: %s", lic.ID, detail)
	}
}

// recordLookup normalizes and records a successful lookup. An unrecognized
// raw status records conservatively and still queues a manual check.
func (s *VerifyJobService) recordLookup(
	ctx context.Context,
	lic *model.License,
	sourceID string,
	result *sources.LookupResult,
) (outcome, string) {
	normalized := verify.Normalize(result.RawStatus)

	_, err := s.recorder.Record(ctx, &model.CreateVerificationRequest{
		LicenseID:       lic.ID,
		SourceID:        &sourceID,
		RunType:         model.RunTypeAutomated,
		Result:          normalized.Result,
		StatusFound:     normalized.Status,
		ExpirationFound: result.Expiration,
		Unencumbered:    result.Unencumbered,
		RawResponse:     result.RawPayload,
		VerifiedBy:      systemActor,
		VerifiedAt:      s.timeProvider.Now(),
	})
	if err != nil {
		return outcomeError, fmt.Sprintf("license %s: record verification: %v", lic.ID, err)
	}

	if normalized.Result == model.ResultPending {
		// The source answered with vocabulary we do not recognize, which is
		// usually site drift. The recorded event flipped the license to
		// needs_manual; a reviewer still has to look at it.
		return s.fallback(ctx, lic, &sourceID, verify.ReasonLookupFailed,
			fmt.Sprintf("unrecognized source status %q", result.RawStatus))
	}
	return outcomeAutoVerified, ""
}

func (s *VerifyJobService) fallback(
	ctx context.Context,
	lic *model.License,
	sourceID *string,
	reason verify.TaskReason,
	detail string,
) (outcome, string) {
	_, _, err := s.tasks.EnsureTask(ctx, lic, sourceID, reason, detail)
	if err != nil {
		return outcomeError, fmt.Sprintf("license %s: ensure task: %v", lic.ID, err)
	}
	return outcomeTaskCreated, ""
}

func (s *VerifyJobService) finalize(
	ctx context.Context,
	runID string,
	status model.JobRunStatus,
	counters *runCounters,
	processed int,
	lastErr string,
) {
	var lastErrPtr *string
	if lastErr != "" {
		lastErrPtr = &lastErr
	}
	err := s.runs.Finalize(ctx, runID, model.FinalizeJobRunParams{
		Status:       status,
		Processed:    processed,
		AutoVerified: counters.autoVerified,
		TasksCreated: counters.tasksCreated,
		Errors:       counters.errored,
		LastError:    lastErrPtr,
		CompletedAt:  s.timeProvider.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to finalize run", "run_id", runID, "error", err)
	}
}

func (s *VerifyJobService) writeRunAudit(
	ctx context.Context,
	runID string,
	status model.JobRunStatus,
	summary *model.RunSummary,
) {
	_, err := s.audit.Create(ctx, &model.CreateAuditEntryRequest{
		Action:     "verify_run." + string(status),
		EntityType: "job_run",
		EntityID:   runID,
		Actor:      systemActor,
		Metadata: core.AuditMetadata(map[string]any{
			"processed":     summary.Processed,
			"auto_verified": summary.AutoVerified,
			"tasks_created": summary.TasksCreated,
			"errors":        summary.Errors,
		}),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit write failed",
			"action", "verify_run", "run_id", runID, "error", err)
	}
}
