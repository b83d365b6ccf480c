package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/caretrack/licensure/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// LicenseRepository defines the interface for license data operations.
type LicenseRepository interface {
	Create(ctx context.Context, req *model.CreateLicenseRequest) (*model.License, error)
	GetByID(ctx context.Context, id string) (*model.License, error)
	List(ctx context.Context, opts model.LicenseListOptions) ([]*model.License, error)
	Update(ctx context.Context, id string, req model.UpdateLicenseRequest) (*model.License, error)
	Delete(ctx context.Context, id string) (bool, error)

	// FindDueForVerification selects the non-archived licenses never verified
	// or last verified before the cutoff. This is the job runner's work set;
	// it is read once per run.
	FindDueForVerification(ctx context.Context, cutoff time.Time, limit int) ([]*model.License, error)

	// ApplyProjection writes the verification-derived projection onto a
	// license row. Expiration is only touched when the projection carries one.
	ApplyProjection(ctx context.Context, licenseID string, p model.LicenseProjection) error
}

// VerificationRepository defines the interface for the append-only verification history.
type VerificationRepository interface {
	// Create appends one verification event. Rows are never updated or deleted.
	Create(ctx context.Context, req *model.CreateVerificationRequest) (*model.Verification, error)
	GetByID(ctx context.Context, id string) (*model.Verification, error)
	ListByLicense(ctx context.Context, opts model.VerificationListOptions) ([]*model.Verification, error)

	// CountByLicense reports how many verification events a license has.
	// Used to decide whether history blocks a license delete.
	CountByLicense(ctx context.Context, licenseID string) (int, error)
}

// TaskRepository defines the interface for manual verification task data operations.
type TaskRepository interface {
	Create(ctx context.Context, req *model.CreateTaskRequest) (*model.VerificationTask, error)
	GetByID(ctx context.Context, id string) (*model.VerificationTask, error)
	List(ctx context.Context, opts model.TaskListOptions) ([]*model.VerificationTask, error)
	Update(ctx context.Context, id string, req model.UpdateTaskRequest) (*model.VerificationTask, error)

	// FindOpen returns the open (pending or in_progress) task for a
	// (license, source) pair, or nil when none exists. At most one open task
	// may exist per pair.
	FindOpen(ctx context.Context, licenseID string, sourceID *string) (*model.VerificationTask, error)

	// Refresh updates the due date, priority, and reason of an existing open
	// task instead of duplicating it.
	Refresh(ctx context.Context, id string, params RefreshTaskParams) (*model.VerificationTask, error)
}

// RefreshTaskParams groups the fields rewritten when an open task is re-dispatched.
type RefreshTaskParams struct {
	Priority int
	Reason   string
	DueDate  time.Time
}

// JobRunRepository defines the interface for job run lifecycle persistence.
type JobRunRepository interface {
	// Create inserts a new run in pending state.
	Create(ctx context.Context) (*model.JobRun, error)
	GetByID(ctx context.Context, id string) (*model.JobRun, error)
	List(ctx context.Context, limit, offset int) ([]*model.JobRun, error)

	// MarkRunning transitions a pending run to running.
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error

	// Finalize writes the terminal state and counters. The row is immutable
	// afterwards.
	Finalize(ctx context.Context, id string, params model.FinalizeJobRunParams) error
}

// AuditRepository defines the interface for the append-only audit trail.
type AuditRepository interface {
	Create(ctx context.Context, req *model.CreateAuditEntryRequest) (*model.AuditEntry, error)
	ListByEntity(ctx context.Context, params ListAuditParams) ([]*model.AuditEntry, error)
}

// ListAuditParams groups filters for audit listing.
type ListAuditParams struct {
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// AuditMetadata marshals a metadata map for an audit entry, dropping it on
// marshal failure rather than failing the caller.
func AuditMetadata(m map[string]any) json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
