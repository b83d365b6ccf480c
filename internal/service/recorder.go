package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caretrack/licensure/internal/core"
	"github.com/caretrack/licensure/internal/data"
	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/domain/model"
	apperrors "github.com/caretrack/licensure/internal/errors"
)

// RecorderServiceOptions groups dependencies for RecorderService.
type RecorderServiceOptions struct {
	Verifications core.VerificationRepository
	Licenses      core.LicenseRepository
	Audit         core.AuditRepository
	Policy        core.AccessPolicy
	TimeProvider  data.TimeProvider
	Logger        *slog.Logger
}

// RecorderService writes verification outcomes: it appends the immutable
// Verification event and then projects it onto the license row. The two
// writes are deliberately not atomic; a verification that fails to project
// stays on record and the projection catches up on the next write.
type RecorderService struct {
	verifications core.VerificationRepository
	licenses      core.LicenseRepository
	audit         core.AuditRepository
	policy        core.AccessPolicy
	timeProvider  data.TimeProvider
	logger        *slog.Logger
}

// NewRecorderService constructs a new RecorderService.
func NewRecorderService(opts RecorderServiceOptions) *RecorderService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = core.RolePolicy{}
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &RecorderService{
		verifications: opts.Verifications,
		licenses:      opts.Licenses,
		audit:         opts.Audit,
		policy:        policy,
		timeProvider:  tp,
		logger:        logger.With("component", "recorder"),
	}
}

// Record appends a verification and updates the license projection.
//
// When the verification row was written but the projection update failed, the
// verification is returned together with the projection error so callers can
// count the failure without losing the event.
func (s *RecorderService) Record(
	ctx context.Context,
	req *model.CreateVerificationRequest,
) (*model.Verification, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	v, err := s.verifications.Create(ctx, req)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	projection := model.ApplyVerification(v)
	if projErr := s.licenses.ApplyProjection(ctx, v.LicenseID, projection); projErr != nil {
		// The event is on record; only the license row is stale.
		s.logger.ErrorContext(ctx, "license projection failed after verification write",
			"license_id", v.LicenseID,
			"verification_id", v.ID,
			"result", v.Result,
			"error", projErr)
		return v, fmt.Errorf("apply projection for license %s: %w", v.LicenseID, projErr)
	}

	s.writeAudit(ctx, v)
	return v, nil
}

// ManualVerificationInput is the operator-supplied portion of a manual
// verification entry.
type ManualVerificationInput struct {
	Result          model.VerificationResult `json:"result"`
	StatusFound     model.LicenseStatus      `json:"status_found"`
	ExpirationFound *time.Time               `json:"expiration_found,omitempty"`
	Unencumbered    *bool                    `json:"unencumbered,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	Evidence        json.RawMessage          `json:"evidence,omitempty"`
}

// RecordManual records a verification entered by a human reviewer. The entry
// goes through the same projection rule as automated lookups.
func (s *RecorderService) RecordManual(
	ctx context.Context,
	sess domainauth.Session,
	licenseID string,
	input ManualVerificationInput,
) (*model.Verification, error) {
	if err := s.policy.Allow(sess, core.ActionWrite); err != nil {
		return nil, err
	}
	if _, err := s.licenses.GetByID(ctx, licenseID); err != nil {
		if errors.Is(err, data.ErrLicenseNotFound) {
			return nil, apperrors.NotFoundf("license %s not found", licenseID)
		}
		return nil, apperrors.MapDBError(err)
	}

	verifiedBy := sess.Email
	if verifiedBy == "" {
		verifiedBy = sess.UserID
	}

	return s.Record(ctx, &model.CreateVerificationRequest{
		LicenseID:       licenseID,
		RunType:         model.RunTypeManual,
		Result:          input.Result,
		StatusFound:     input.StatusFound,
		ExpirationFound: input.ExpirationFound,
		Unencumbered:    input.Unencumbered,
		Notes:           input.Notes,
		RawResponse:     input.Evidence,
		VerifiedBy:      verifiedBy,
		VerifiedAt:      s.timeProvider.Now(),
	})
}

// ListByLicense returns the verification history for a license, newest first.
func (s *RecorderService) ListByLicense(
	ctx context.Context,
	sess domainauth.Session,
	opts model.VerificationListOptions,
) ([]*model.Verification, error) {
	if err := s.policy.Allow(sess, core.ActionRead); err != nil {
		return nil, err
	}
	out, err := s.verifications.ListByLicense(ctx, opts)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// Get fetches a single verification by ID.
func (s *RecorderService) Get(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (*model.Verification, error) {
	if err := s.policy.Allow(sess, core.ActionRead); err != nil {
		return nil, err
	}
	v, err := s.verifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrVerificationNotFound) {
			return nil, apperrors.NotFoundf("verification %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return v, nil
}

func (s *RecorderService) writeAudit(ctx context.Context, v *model.Verification) {
	metadata := map[string]any{
		"verification_id": v.ID,
		"result":          v.Result,
		"status_found":    v.StatusFound,
		"run_type":        v.RunType,
	}
	if v.SourceID != nil {
		metadata["source_id"] = *v.SourceID
	}
	_, err := s.audit.Create(ctx, &model.CreateAuditEntryRequest{
		Action:     "license.verified",
		EntityType: "license",
		EntityID:   v.LicenseID,
		Actor:      v.VerifiedBy,
		Metadata:   core.AuditMetadata(metadata),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit write failed",
			"action", "license.verified", "license_id", v.LicenseID, "error", err)
	}
}
