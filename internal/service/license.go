package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/domain/model"
	apperrors "github.com/caretrack/licensure/internal/errors"
)

// LicenseServiceOptions groups dependencies for LicenseService.
type LicenseServiceOptions struct {
	Licenses      core.LicenseRepository
	Verifications core.VerificationRepository
	Audit         core.AuditRepository
	Policy        core.AccessPolicy
	Logger        *slog.Logger
}

// LicenseService orchestrates license CRUD. Deletion is blocked once a license
// has verification history; such licenses are archived instead.
type LicenseService struct {
	licenses      core.LicenseRepository
	verifications core.VerificationRepository
	audit         core.AuditRepository
	policy        core.AccessPolicy
	logger        *slog.Logger
}

// NewLicenseService constructs a new LicenseService.
func NewLicenseService(opts LicenseServiceOptions) *LicenseService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = core.RolePolicy{}
	}
	return &LicenseService{
		licenses:      opts.Licenses,
		verifications: opts.Verifications,
		audit:         opts.Audit,
		policy:        policy,
		logger:        logger.With("component", "license_service"),
	}
}

// Create registers a new license for a person.
func (s *LicenseService) Create(
	ctx context.Context,
	sess domainauth.Session,
	req *model.CreateLicenseRequest,
) (*model.License, error) {
	if err := s.policy.Allow(sess, core.ActionWrite); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	lic, err := s.licenses.Create(ctx, req)
	if err != nil {
		if errors.Is(err, data.ErrLicenseExists) {
			return nil, apperrors.Conflict("this license is already on file for this person")
		}
		return nil, apperrors.MapDBError(err)
	}

	s.writeAudit(ctx, "license.created", lic.ID, sess, map[string]any{
		"jurisdiction":    lic.Jurisdiction,
		"credential_type": lic.CredentialType,
	})
	return lic, nil
}

// Get fetches a license by ID.
func (s *LicenseService) Get(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (*model.License, error) {
	if err := s.policy.Allow(sess, core.ActionRead); err != nil {
		return nil, err
	}
	lic, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrLicenseNotFound) {
			return nil, apperrors.NotFoundf("license %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return lic, nil
}

// List returns licenses matching the filter options.
func (s *LicenseService) List(
	ctx context.Context,
	sess domainauth.Session,
	opts model.LicenseListOptions,
) ([]*model.License, error) {
	if err := s.policy.Allow(sess, core.ActionRead); err != nil {
		return nil, err
	}
	out, err := s.licenses.List(ctx, opts)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// Update applies a partial update to a license.
func (s *LicenseService) Update(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	req model.UpdateLicenseRequest,
) (*model.License, error) {
	if err := s.policy.Allow(sess, core.ActionWrite); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	lic, err := s.licenses.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, data.ErrLicenseNotFound) {
			return nil, apperrors.NotFoundf("license %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}

	s.writeAudit(ctx, "license.updated", lic.ID, sess, nil)
	return lic, nil
}

// Delete removes a license that has no verification history. Licenses that
// have been verified are part of the compliance record and must be archived
// via Update instead.
func (s *LicenseService) Delete(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (bool, error) {
	if err := s.policy.Allow(sess, core.ActionWrite); err != nil {
		return false, err
	}

	n, err := s.verifications.CountByLicense(ctx, id)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	if n > 0 {
		return false, apperrors.Conflict("license has verification history; archive it instead of deleting")
	}

	ok, err := s.licenses.Delete(ctx, id)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	if ok {
		s.writeAudit(ctx, "license.deleted", id, sess, nil)
	}
	return ok, nil
}

func (s *LicenseService) writeAudit(
	ctx context.Context,
	action, licenseID string,
	sess domainauth.Session,
	metadata map[string]any,
) {
	actor := sess.Email
	if actor == "" {
		actor = "system"
	}
	_, err := s.audit.Create(ctx, &model.CreateAuditEntryRequest{
		Action:     action,
		EntityType: "license",
		EntityID:   licenseID,
		Actor:      actor,
		Metadata:   core.AuditMetadata(metadata),
	})
	if err != nil {
		// The audit trail is best effort; the primary write already happened.
		s.logger.WarnContext(ctx, "audit write failed",
			"action", action, "license_id", licenseID, "error", err)
	}
}
