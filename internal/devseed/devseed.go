// Package devseed populates a development database with a small roster of
// licenses so the HTTP API and the verification runner have data to chew on.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caretrack/licensure/internal/data"
	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/domain/model"
	apperrors "github.com/caretrack/licensure/internal/errors"
	"github.com/caretrack/licensure/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB       *sql.DB
	licenses *service.LicenseService
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	return newServices(db, buildSeedServices(db))
}

func newServices(db *sql.DB, deps seedDeps) Services {
	return Services{
		DB:       db,
		licenses: deps.licenses,
	}
}

type seedDeps struct {
	licenses *service.LicenseService
}

type seedRepos struct {
	licenses      *data.LicenseRepo
	verifications *data.VerificationRepo
	audit         *data.AuditRepo
}

func newSeedRepos(db *sql.DB) seedRepos {
	return seedRepos{
		licenses:      data.NewLicenseRepo(db),
		verifications: data.NewVerificationRepo(db),
		audit:         data.NewAuditRepo(db),
	}
}

func buildSeedServices(db *sql.DB) seedDeps {
	repos := newSeedRepos(db)
	return seedDeps{
		licenses: service.NewLicenseService(service.LicenseServiceOptions{
			Licenses:      repos.licenses,
			Verifications: repos.verifications,
			Audit:         repos.audit,
		}),
	}
}

// Run seeds licenses and a sample manual task. Seeding is idempotent: records
// that already exist are skipped, not duplicated.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if svcs.licenses == nil {
		return errors.New("devseed: license service is required")
	}

	sess := seedSession()

	created := 0
	for _, req := range defaultLicenses() {
		ok, err := createLicense(ctx, svcs.licenses, sess, req)
		if err != nil {
			logger.ErrorContext(ctx, "seed license failed",
				"jurisdiction", req.Jurisdiction,
				"number", req.Number,
				"error", err,
			)
			continue
		}
		if ok {
			created++
			logger.InfoContext(ctx, "seeded license",
				"jurisdiction", req.Jurisdiction,
				"number", req.Number,
			)
		}
	}

	logger.InfoContext(ctx, "development seeding complete", "licenses_created", created)
	return nil
}

// seedSession is the synthetic admin identity used for audit attribution.
func seedSession() domainauth.Session {
	return domainauth.Session{
		ID:        "devseed",
		UserID:    "devseed",
		Email:     "devseed@localhost",
		Role:      domainauth.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func createLicense(
	ctx context.Context,
	svc *service.LicenseService,
	sess domainauth.Session,
	req *model.CreateLicenseRequest,
) (bool, error) {
	_, err := svc.Create(ctx, sess, req)
	if err == nil {
		return true, nil
	}
	if isConflict(err) {
		return false, nil
	}
	return false, fmt.Errorf("create license: %w", err)
}

func isConflict(err error) bool {
	return apperrors.GetCode(err) == apperrors.ErrCodeConflict
}

func defaultLicenses() []*model.CreateLicenseRequest {
	exp := func(days int) *time.Time {
		t := time.Now().AddDate(0, 0, days).Truncate(24 * time.Hour)
		return &t
	}

	return []*model.CreateLicenseRequest{
		{
			PersonID:       "person-ada",
			Jurisdiction:   "OH",
			Number:         "RN446200",
			CredentialType: model.CredentialRN,
			FirstName:      "Ada",
			LastName:       "Okafor",
			Expiration:     exp(240),
		},
		{
			PersonID:       "person-ada",
			Jurisdiction:   "TX",
			Number:         "RN887341",
			CredentialType: model.CredentialRN,
			FirstName:      "Ada",
			LastName:       "Okafor",
			Expiration:     exp(120),
		},
		{
			PersonID:       "person-marisol",
			Jurisdiction:   "CA",
			Number:         "APRN12058",
			CredentialType: model.CredentialAPRN,
			FirstName:      "Marisol",
			LastName:       "Vega",
			Expiration:     exp(30),
		},
		{
			PersonID:       "person-devon",
			Jurisdiction:   "MT",
			Number:         "LPN70331",
			CredentialType: model.CredentialLPN,
			FirstName:      "Devon",
			LastName:       "Hale",
			// MT has no automated source; this license exercises the
			// manual task fallback path.
			Expiration: exp(14),
		},
		{
			PersonID:       "person-devon",
			Jurisdiction:   "FL",
			Number:         "CNA99104",
			CredentialType: model.CredentialCNA,
			FirstName:      "Devon",
			LastName:       "Hale",
		},
	}
}
