package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/domain/verify"
	apperrors "github.com/caretrack/licensure/internal/errors"
)

// TaskEngineOptions groups dependencies for TaskEngine.
type TaskEngineOptions struct {
	Tasks        core.TaskRepository
	Audit        core.AuditRepository
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// TaskEngine manages fallback verification tasks. At most one open task exists
// per (license, source); re-dispatching an already-queued license refreshes the
// open task rather than duplicating it.
type TaskEngine struct {
	tasks        core.TaskRepository
	audit        core.AuditRepository
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewTaskEngine constructs a new TaskEngine.
func NewTaskEngine(opts TaskEngineOptions) *TaskEngine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &TaskEngine{
		tasks:        opts.Tasks,
		audit:        opts.Audit,
		timeProvider: tp,
		logger:       logger.With("component", "task_engine"),
	}
}

// EnsureTask queues a fallback task for a license, or refreshes the one
// already open for the same source. It returns the task and whether a new row
// was created. detail carries the triggering failure's error text so it
// survives in the audit trail; empty for the unsupported-jurisdiction path.
func (e *TaskEngine) EnsureTask(
	ctx context.Context,
	license *model.License,
	sourceID *string,
	reason verify.TaskReason,
	detail string,
) (*model.VerificationTask, bool, error) {
	now := e.timeProvider.Now()
	priority := verify.TaskPriority(reason, license.Expiration, now)
	dueDate := verify.TaskDueDate(license.Expiration, now)

	open, err := e.tasks.FindOpen(ctx, license.ID, sourceID)
	if err != nil {
		return nil, false, apperrors.MapDBError(err)
	}
	if open != nil {
		return e.refresh(ctx, open, priority, reason, dueDate, detail)
	}

	task, err := e.tasks.Create(ctx, &model.CreateTaskRequest{
		LicenseID: license.ID,
		SourceID:  sourceID,
		Priority:  priority,
		Reason:    string(reason),
		DueDate:   dueDate,
	})
	if err != nil {
		// A concurrent dispatch can win the insert; fold into its task.
		if errors.Is(err, data.ErrOpenTaskExists) {
			open, findErr := e.tasks.FindOpen(ctx, license.ID, sourceID)
			if findErr == nil && open != nil {
				return e.refresh(ctx, open, priority, reason, dueDate, detail)
			}
		}
		return nil, false, apperrors.MapDBError(err)
	}

	e.logger.InfoContext(ctx, "fallback task created",
		"task_id", task.ID,
		"license_id", license.ID,
		"reason", reason,
		"priority", priority)
	e.writeAudit(ctx, "task.created", task, detail)
	return task, true, nil
}

func (e *TaskEngine) refresh(
	ctx context.Context,
	open *model.VerificationTask,
	priority int,
	reason verify.TaskReason,
	dueDate time.Time,
	detail string,
) (*model.VerificationTask, bool, error) {
	// Never lower the urgency of a task a reviewer may already be triaging.
	if open.Priority > priority {
		priority = open.Priority
	}
	if open.DueDate.Before(dueDate) {
		dueDate = open.DueDate
	}

	task, err := e.tasks.Refresh(ctx, open.ID, core.RefreshTaskParams{
		Priority: priority,
		Reason:   string(reason),
		DueDate:  dueDate,
	})
	if err != nil {
		return nil, false, apperrors.MapDBError(err)
	}
	e.logger.InfoContext(ctx, "fallback task refreshed",
		"task_id", task.ID, "license_id", task.LicenseID, "priority", priority)
	e.writeAudit(ctx, "task.refreshed", task, detail)
	return task, false, nil
}

// Get fetches a task by ID.
func (e *TaskEngine) Get(ctx context.Context, id string) (*model.VerificationTask, error) {
	task, err := e.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrTaskNotFound) {
			return nil, apperrors.NotFoundf("task %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return task, nil
}

// List returns tasks matching the filter options, highest priority first.
func (e *TaskEngine) List(
	ctx context.Context,
	opts model.TaskListOptions,
) ([]*model.VerificationTask, error) {
	out, err := e.tasks.List(ctx, opts)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// Update applies a partial update, typically a reviewer claiming or closing a
// task.
func (e *TaskEngine) Update(
	ctx context.Context,
	id string,
	req model.UpdateTaskRequest,
) (*model.VerificationTask, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	task, err := e.tasks.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, data.ErrTaskNotFound) {
			return nil, apperrors.NotFoundf("task %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	e.writeAudit(ctx, "task.updated", task, "")
	return task, nil
}

func (e *TaskEngine) writeAudit(ctx context.Context, action string, task *model.VerificationTask, detail string) {
	metadata := map[string]any{
		"license_id": task.LicenseID,
		"status":     task.Status,
		"priority":   task.Priority,
	}
	if task.SourceID != nil {
		metadata["source_id"] = *task.SourceID
	}
	if detail != "" {
		metadata["detail"] = detail
	}
	_, err := e.audit.Create(ctx, &model.CreateAuditEntryRequest{
		Action:     action,
		EntityType: "verification_task",
		EntityID:   task.ID,
		Actor:      "system",
		Metadata:   core.AuditMetadata(metadata),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "audit write failed",
			"action", action, "task_id", task.ID, "error", err)
	}
}
