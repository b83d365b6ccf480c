package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/service"
)

// In-memory repository fakes backing the handler tests. They mirror the
// sentinel errors of the real data layer so service error mapping behaves
// the same.

type fakeLicenseRepo struct {
	mu       sync.Mutex
	licenses map[string]*model.License
	seq      int
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{licenses: map[string]*model.License{}}
}

func (f *fakeLicenseRepo) Create(_ context.Context, req *model.CreateLicenseRequest) (*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jurisdiction := model.NormalizeJurisdiction(req.Jurisdiction)
	for _, lic := range f.licenses {
		if lic.PersonID == req.PersonID && lic.Jurisdiction == jurisdiction && lic.Number == req.Number {
			return nil, data.ErrLicenseExists
		}
	}
	f.seq++
	lic := &model.License{
		ID:             fmt.Sprintf("lic-%d", f.seq),
		PersonID:       req.PersonID,
		Jurisdiction:   jurisdiction,
		Number:         req.Number,
		CredentialType: req.CredentialType,
		Status:         model.LicenseStatusUnknown,
		Expiration:     req.Expiration,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
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
	cp := *lic
	return &cp, nil
}

func (f *fakeLicenseRepo) List(_ context.Context, opts model.LicenseListOptions) ([]*model.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.License{}
	for _, lic := range f.licenses {
		if opts.PersonID != nil && lic.PersonID != *opts.PersonID {
			continue
		}
		if opts.Jurisdiction != nil && lic.Jurisdiction != *opts.Jurisdiction {
			continue
		}
		cp := *lic
		out = append(out, &cp)
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
	if req.Number != nil {
		lic.Number = *req.Number
	}
	if req.Archived != nil {
		lic.Archived = *req.Archived
	}
	lic.UpdatedAt = time.Now()
	cp := *lic
	return &cp, nil
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

func (f *fakeLicenseRepo) FindDueForVerification(context.Context, time.Time, int) ([]*model.License, error) {
	return nil, nil
}

func (f *fakeLicenseRepo) ApplyProjection(_ context.Context, licenseID string, p model.LicenseProjection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.licenses[licenseID]
	if !ok {
		return data.ErrLicenseNotFound
	}
	lic.Status = p.Status
	if p.Expiration != nil {
		lic.Expiration = p.Expiration
	}
	verifiedAt := p.LastVerifiedAt
	lic.LastVerifiedAt = &verifiedAt
	return nil
}

type fakeVerificationRepo struct {
	mu     sync.Mutex
	events map[string]*model.Verification
	seq    int
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{events: map[string]*model.Verification{}}
}

func (f *fakeVerificationRepo) Create(_ context.Context, req *model.CreateVerificationRequest) (*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	v := &model.Verification{
		ID:              fmt.Sprintf("ver-%d", f.seq),
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
		CreatedAt:       time.Now(),
	}
	f.events[v.ID] = v
	return v, nil
}

func (f *fakeVerificationRepo) GetByID(_ context.Context, id string) (*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.events[id]
	if !ok {
		return nil, data.ErrVerificationNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVerificationRepo) ListByLicense(_ context.Context, opts model.VerificationListOptions) ([]*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Verification{}
	for _, v := range f.events {
		if opts.LicenseID != nil && v.LicenseID != *opts.LicenseID {
			continue
		}
		if opts.Result != nil && v.Result != *opts.Result {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeVerificationRepo) CountByLicense(_ context.Context, licenseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.events {
		if v.LicenseID == licenseID {
			n++
		}
	}
	return n, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.VerificationTask
	seq   int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*model.VerificationTask{}}
}

func (f *fakeTaskRepo) Create(_ context.Context, req *model.CreateTaskRequest) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	task := &model.VerificationTask{
		ID:        fmt.Sprintf("task-%d", f.seq),
		LicenseID: req.LicenseID,
		SourceID:  req.SourceID,
		Status:    model.TaskStatusPending,
		Priority:  req.Priority,
		Reason:    req.Reason,
		DueDate:   req.DueDate,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
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
	cp := *task
	return &cp, nil
}

func (f *fakeTaskRepo) List(_ context.Context, opts model.TaskListOptions) ([]*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.VerificationTask{}
	for _, task := range f.tasks {
		if opts.LicenseID != nil && task.LicenseID != *opts.LicenseID {
			continue
		}
		if opts.Status != nil && task.Status != *opts.Status {
			continue
		}
		cp := *task
		out = append(out, &cp)
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
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Assignee != nil {
		task.Assignee = req.Assignee
	}
	task.UpdatedAt = time.Now()
	cp := *task
	return &cp, nil
}

func (f *fakeTaskRepo) FindOpen(_ context.Context, licenseID string, sourceID *string) (*model.VerificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.LicenseID != licenseID {
			continue
		}
		if (task.SourceID == nil) != (sourceID == nil) {
			continue
		}
		if task.SourceID != nil && *task.SourceID != *sourceID {
			continue
		}
		if task.Status == model.TaskStatusPending || task.Status == model.TaskStatusInProgress {
			cp := *task
			return &cp, nil
		}
	}
	return nil, nil
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
	task.UpdatedAt = time.Now()
	cp := *task
	return &cp, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (f *fakeAuditRepo) Create(_ context.Context, req *model.CreateAuditEntryRequest) (*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := &model.AuditEntry{
		ID:         fmt.Sprintf("audit-%d", len(f.entries)+1),
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Actor:      req.Actor,
		Metadata:   req.Metadata,
		CreatedAt:  time.Now(),
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeAuditRepo) ListByEntity(context.Context, core.ListAuditParams) ([]*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.AuditEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

var (
	_ core.LicenseRepository      = (*fakeLicenseRepo)(nil)
	_ core.VerificationRepository = (*fakeVerificationRepo)(nil)
	_ core.TaskRepository         = (*fakeTaskRepo)(nil)
	_ core.AuditRepository        = (*fakeAuditRepo)(nil)
)

// fakeAuthService satisfies AuthServiceInterface for middleware and router
// tests. Any cookie value starting with "valid" resolves to a session.
type fakeAuthService struct {
	role domainauth.Role
}

func (f *fakeAuthService) GetSession(_ context.Context, sessionID string) (*domainauth.Session, error) {
	if !strings.HasPrefix(sessionID, "valid") {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	role := f.role
	if role == "" {
		role = domainauth.RoleAdmin
	}
	return &domainauth.Session{
		ID:        sessionID,
		UserID:    "user-1",
		FirstName: "Pat",
		LastName:  "Reviewer",
		Email:     "pat@caretrack.io",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeAuthService) BeginLogin(context.Context, string) (*service.BeginLoginResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeAuthService) CompleteLogin(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeAuthService) Logout(context.Context, string) error { return nil }

var _ AuthServiceInterface = (*fakeAuthService)(nil)

// withSession attaches a session to the request context directly, bypassing
// the cookie middleware for handler-level tests.
func withSession(r *http.Request, role domainauth.Role) *http.Request {
	sess := &domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "pat@caretrack.io",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return r.WithContext(SetSessionInContext(r.Context(), sess))
}
