package testutil

import (
	"time"

	"github.com/caretrack/licensure/internal/domain/model"
)

// LicenseRequestBuilder builds CreateLicenseRequest values for tests.
type LicenseRequestBuilder struct {
	request *model.CreateLicenseRequest
}

// NewLicenseRequest starts a builder with sensible defaults.
func NewLicenseRequest() *LicenseRequestBuilder {
	return &LicenseRequestBuilder{
		request: &model.CreateLicenseRequest{
			PersonID:       "person-1",
			Jurisdiction:   "OH",
			Number:         "RN123456",
			CredentialType: model.CredentialRN,
			FirstName:      "Jane",
			LastName:       "Doe",
		},
	}
}

// WithPersonID sets the person identifier.
func (b *LicenseRequestBuilder) WithPersonID(id string) *LicenseRequestBuilder {
	b.request.PersonID = id
	return b
}

// WithJurisdiction sets the jurisdiction code.
func (b *LicenseRequestBuilder) WithJurisdiction(code string) *LicenseRequestBuilder {
	b.request.Jurisdiction = code
	return b
}

// WithNumber sets the license number.
func (b *LicenseRequestBuilder) WithNumber(number string) *LicenseRequestBuilder {
	b.request.Number = number
	return b
}

// WithCredentialType sets the credential type.
func (b *LicenseRequestBuilder) WithCredentialType(t model.CredentialType) *LicenseRequestBuilder {
	b.request.CredentialType = t
	return b
}

// WithName sets the licensee name.
func (b *LicenseRequestBuilder) WithName(first, last string) *LicenseRequestBuilder {
	b.request.FirstName = first
	b.request.LastName = last
	return b
}

// WithExpiration sets the expiration date.
func (b *LicenseRequestBuilder) WithExpiration(exp time.Time) *LicenseRequestBuilder {
	b.request.Expiration = &exp
	return b
}

// Build returns the request.
func (b *LicenseRequestBuilder) Build() *model.CreateLicenseRequest {
	return b.request
}

// VerificationRequestBuilder builds CreateVerificationRequest values for tests.
type VerificationRequestBuilder struct {
	request *model.CreateVerificationRequest
}

// NewVerificationRequest starts a builder for a successful automated
// verification of the given license.
func NewVerificationRequest(licenseID string) *VerificationRequestBuilder {
	sourceID := "oh-board-of-nursing"
	return &VerificationRequestBuilder{
		request: &model.CreateVerificationRequest{
			LicenseID:   licenseID,
			SourceID:    &sourceID,
			RunType:     model.RunTypeAutomated,
			Result:      model.ResultVerified,
			StatusFound: model.LicenseStatusActive,
			VerifiedBy:  "system",
			VerifiedAt:  TestTime(),
		},
	}
}

// WithSourceID sets the source identifier; empty clears it.
func (b *VerificationRequestBuilder) WithSourceID(id string) *VerificationRequestBuilder {
	if id == "" {
		b.request.SourceID = nil
	} else {
		b.request.SourceID = &id
	}
	return b
}

// WithRunType sets the run type.
func (b *VerificationRequestBuilder) WithRunType(rt model.RunType) *VerificationRequestBuilder {
	b.request.RunType = rt
	return b
}

// WithResult sets the verification result.
func (b *VerificationRequestBuilder) WithResult(res model.VerificationResult) *VerificationRequestBuilder {
	b.request.Result = res
	return b
}

// WithStatusFound sets the status found at the source.
func (b *VerificationRequestBuilder) WithStatusFound(s model.LicenseStatus) *VerificationRequestBuilder {
	b.request.StatusFound = s
	return b
}

// WithExpirationFound sets the expiration reported by the source.
func (b *VerificationRequestBuilder) WithExpirationFound(exp time.Time) *VerificationRequestBuilder {
	b.request.ExpirationFound = &exp
	return b
}

// WithRawResponse attaches the raw source payload.
func (b *VerificationRequestBuilder) WithRawResponse(raw string) *VerificationRequestBuilder {
	b.request.RawResponse = []byte(raw)
	return b
}

// WithVerifiedBy sets the actor.
func (b *VerificationRequestBuilder) WithVerifiedBy(actor string) *VerificationRequestBuilder {
	b.request.VerifiedBy = actor
	return b
}

// WithVerifiedAt sets the verification timestamp.
func (b *VerificationRequestBuilder) WithVerifiedAt(at time.Time) *VerificationRequestBuilder {
	b.request.VerifiedAt = at
	return b
}

// Build returns the request.
func (b *VerificationRequestBuilder) Build() *model.CreateVerificationRequest {
	return b.request
}

// TaskRequest returns a CreateTaskRequest with test defaults.
func TaskRequest(licenseID string) *model.CreateTaskRequest {
	sourceID := "oh-board-of-nursing"
	return &model.CreateTaskRequest{
		LicenseID: licenseID,
		SourceID:  &sourceID,
		Priority:  model.TaskPriorityDefault,
		Reason:    "automated lookup failed",
		DueDate:   TestTime().Add(7 * 24 * time.Hour),
	}
}
