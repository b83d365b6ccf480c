package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/domain/model"
)

// In-memory fakes for the repository ports. They implement just enough
// semantics for the service tests: sentinel errors mirror internal/data, and
// every fake is safe for concurrent use because the job runner exercises them
// from multiple goroutines.

type fakeLicenseRepo struct {
	mu          sync.Mutex
	licenses    map[string]*model.License
	seq         int
	projections map[string][]model.LicenseProjection

	createErr     error
	projectionErr error
	findDueErr    error
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{
		licenses:    make(map[string]*model.License),
		projections: make(map[string][]model.LicenseProjection),
	}
}

func (f *fakeLicenseRepo) add(lic *model.License) *model.License {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lic.ID == "" {
		f.seq++
		lic.ID = fmt.Sprintf("lic-%d", f.seq)
	}
	f.licenses[lic.ID] = lic
	return lic
}

func (f *fakeLicenseRepo) Create(_ context.Context, req *model.CreateLicenseRequest) (*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.licenses {
		if existing.PersonID == req.PersonID &&
			existing.Jurisdiction == model.NormalizeJurisdiction(req.Jurisdiction) &&
			existing.Number == req.Number &&
			existing.CredentialType == req.CredentialType {
			return nil, data.ErrLicenseExists
		}
	}
	f.seq++
	lic := &model.License{
		ID:             fmt.Sprintf("lic-%d", f.seq),
		PersonID:       req.PersonID,
		Jurisdiction:   model.NormalizeJurisdiction(req.Jurisdiction),
		Number:         req.Number,
		CredentialType: req.CredentialType,
		Status:         model.LicenseStatusUnknown,
		Expiration:     req.Expiration,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	}
	f.licenses[lic.ID] = lic
	return lic, nil
}

func (f *fakeLicenseRepo) GetByID(_ context.Context, id string) (*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.licenses[id]
	if !ok {
		return nil, data.ErrLicenseNotFound
	}
	copied := *lic
	return &copied, nil
}

func (f *fakeLicenseRepo) List(_ context.Context, opts model.LicenseListOptions) ([]*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.License
	for _, lic := range f.licenses {
		if opts.PersonID != nil && lic.PersonID != *opts.PersonID {
			continue
		}
		copied := *lic
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeLicenseRepo) Update(_ context.Context, id string, req model.UpdateLicenseRequest) (*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.licenses[id]
	if !ok {
		return nil, data.ErrLicenseNotFound
	}
	if req.FirstName != nil {
		lic.FirstName = *req.FirstName
	}
	if req.Archived != nil {
		lic.Archived = *req.Archived
	}
	copied := *lic
	return &copied, nil
}

func (f *fakeLicenseRepo) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.licenses[id]; !ok {
		return false, nil
	}
	delete(f.licenses, id)
	return true, nil
}

func (f *fakeLicenseRepo) FindDueForVerification(_ context.Context, cutoff time.Time, limit int) ([]*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findDueErr != nil {
		return nil, f.findDueErr
	}
	var out []*model.License
	for _, lic := range f.licenses {
		if lic.Archived {
			continue
		}
		if lic.LastVerifiedAt != nil && !lic.LastVerifiedAt.Before(cutoff) {
			continue
		}
		copied := *lic
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLicenseRepo) ApplyProjection(_ context.Context, licenseID string, p model.LicenseProjection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projectionErr != nil {
		return f.projectionErr
	}
	lic, ok := f.licenses[licenseID]
	if !ok {
		return data.ErrLicenseNotFound
	}
	lic.Status = p.Status
	if p.Expiration != nil {
		lic.Expiration = p.Expiration
	}
	if len(p.SyncedData) > 0 {
		lic.SyncedData = p.SyncedData
		lic.SyncedAt = &p.SyncedAt
	}
	at := p.LastVerifiedAt
	lic.LastVerifiedAt = &at
	f.projections[licenseID] = append(f.projections[licenseID], p)
	return nil
}

type fakeVerificationRepo struct {
	mu      sync.Mutex
	rows    []*model.Verification
	seq     int
	byID    map[string]*model.Verification
	counts  map[string]int
	failErr error
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{
		byID:   make(map[string]*model.Verification),
		counts: make(map[string]int),
	}
}

func (f *fakeVerificationRepo) Create(_ context.Context, req *model.CreateVerificationRequest) (*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.seq++
	v := &model.Verification{
		ID:              fmt.Sprintf("verif-%d", f.seq),
		LicenseID:       req.LicenseID,
		SourceID:        req.SourceID,
		RunType:         req.RunType,
		Result:          req.Result,
		StatusFound:     req.StatusFound,
		ExpirationFound: req.ExpirationFound,
		Unencumbered:    req.Unencumbered,
		Notes:           req.Notes,
		RawResponse:     req.RawResponse,
		VerifiedBy:      req.VerifiedBy,
		VerifiedAt:      req.VerifiedAt,
	}
	f.rows = append(f.rows, v)
	f.byID[v.ID] = v
	f.counts[v.LicenseID]++
	return v, nil
}

func (f *fakeVerificationRepo) GetByID(_ context.Context, id string) (*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, data.ErrVerificationNotFound
	}
	return v, nil
}

func (f *fakeVerificationRepo) ListByLicense(_ context.Context, opts model.VerificationListOptions) ([]*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Verification
	for i := len(f.rows) - 1; i >= 0; i-- {
		v := f.rows[i]
		if opts.LicenseID != nil && v.LicenseID != *opts.LicenseID {
			continue
		}
		if opts.Result != nil && v.Result != *opts.Result {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeVerificationRepo) CountByLicense(_ context.Context, licenseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[licenseID], nil
}

func (f *fakeVerificationRepo) all() []*model.Verification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Verification, len(f.rows))
	copy(out, f.rows)
	return out
}

type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]*model.VerificationTask
	seq       int
	refreshed int
	createErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*model.VerificationTask)}
}

func taskKey(licenseID string, sourceID *string) string {
	src := ""
	if sourceID != nil {
		src = *sourceID
	}
	return licenseID + "|" + src
}

func (f *fakeTaskRepo) openFor(key string) *model.VerificationTask {
	for _, task := range f.tasks {
		if task.Status != model.TaskStatusPending && task.Status != model.TaskStatusInProgress {
			continue
		}
		if taskKey(task.LicenseID, task.SourceID) == key {
			return task
		}
	}
	return nil
}

func (f *fakeTaskRepo) Create(_ context.Context, req *model.CreateTaskRequest) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.openFor(taskKey(req.LicenseID, req.SourceID)) != nil {
		return nil, data.ErrOpenTaskExists
	}
	f.seq++
	task := &model.VerificationTask{
		ID:        fmt.Sprintf("task-%d", f.seq),
		LicenseID: req.LicenseID,
		SourceID:  req.SourceID,
		Status:    model.TaskStatusPending,
		Priority:  req.Priority,
		Reason:    req.Reason,
		DueDate:   req.DueDate,
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, data.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) List(_ context.Context, opts model.TaskListOptions) ([]*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.VerificationTask
	for _, task := range f.tasks {
		if opts.LicenseID != nil && task.LicenseID != *opts.LicenseID {
			continue
		}
		if opts.Status != nil && task.Status != *opts.Status {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, id string, req model.UpdateTaskRequest) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, data.ErrTaskNotFound
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Assignee != nil {
		if *req.Assignee == "" {
			task.Assignee = nil
		} else {
			task.Assignee = req.Assignee
		}
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) FindOpen(_ context.Context, licenseID string, sourceID *string) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := f.openFor(taskKey(licenseID, sourceID))
	if task == nil {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) Refresh(_ context.Context, id string, params core.RefreshTaskParams) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, data.ErrTaskNotFound
	}
	task.Priority = params.Priority
	task.Reason = params.Reason
	task.DueDate = params.DueDate
	f.refreshed++
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) open() []*model.VerificationTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.VerificationTask
	for _, task := range f.tasks {
		if task.Status == model.TaskStatusPending || task.Status == model.TaskStatusInProgress {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out
}

type fakeJobRunRepo struct {
	mu   sync.Mutex
	runs map[string]*model.JobRun
	seq  int

	createErr error
}

func newFakeJobRunRepo() *fakeJobRunRepo {
	return &fakeJobRunRepo{runs: make(map[string]*model.JobRun)}
}

func (f *fakeJobRunRepo) Create(_ context.Context) (*model.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	run := &model.JobRun{
		ID:     fmt.Sprintf("run-%d", f.seq),
		Status: model.JobRunStatusPending,
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeJobRunRepo) GetByID(_ context.Context, id string) (*model.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, data.ErrJobRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (f *fakeJobRunRepo) List(_ context.Context, _, _ int) ([]*model.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.JobRun
	for _, run := range f.runs {
		copied := *run
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeJobRunRepo) MarkRunning(_ context.Context, id string, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok || run.Status != model.JobRunStatusPending {
		return data.ErrJobRunNotFound
	}
	run.Status = model.JobRunStatusRunning
	run.StartedAt = startedAt
	return nil
}

func (f *fakeJobRunRepo) Finalize(_ context.Context, id string, params model.FinalizeJobRunParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok || (run.Status != model.JobRunStatusPending && run.Status != model.JobRunStatusRunning) {
		return data.ErrJobRunNotFound
	}
	run.Status = params.Status
	run.Processed = params.Processed
	run.AutoVerified = params.AutoVerified
	run.TasksCreated = params.TasksCreated
	run.Errors = params.Errors
	run.LastError = params.LastError
	completed := params.CompletedAt
	run.CompletedAt = &completed
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
	seq     int

	createErr error
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(_ context.Context, req *model.CreateAuditEntryRequest) (*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	entry := &model.AuditEntry{
		ID:         fmt.Sprintf("audit-%d", f.seq),
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Actor:      req.Actor,
		Metadata:   req.Metadata,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeAuditRepo) ListByEntity(_ context.Context, params core.ListAuditParams) ([]*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditEntry
	for _, entry := range f.entries {
		if entry.EntityType == params.EntityType && entry.EntityID == params.EntityID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		out = append(out, entry.Action)
	}
	return out
}

// Interface conformance.
var (
	_ core.LicenseRepository      = (*fakeLicenseRepo)(nil)
	_ core.VerificationRepository = (*fakeVerificationRepo)(nil)
	_ core.TaskRepository         = (*fakeTaskRepo)(nil)
	_ core.JobRunRepository       = (*fakeJobRunRepo)(nil)
	_ core.AuditRepository        = (*fakeAuditRepo)(nil)
)
