// Package verify contains the pure decision logic of the verification pipeline:
// raw-status normalization and fallback task policy. Nothing in this package
// performs I/O.
package verify

import (
	"strings"

	"github.com/caretrack/licensure/internal/domain/model"
)

// Normalized is the pair of independent projections computed from an adapter's
// raw status string. Canonical license status and verification result are kept
// deliberately separate: a flagged license can still carry a pending result.
type Normalized struct {
	Status model.LicenseStatus
	Result model.VerificationResult
}

// Normalize maps an adapter-specific raw status into the system's canonical
// license status and verification result. Unrecognized or missing statuses take
// the conservative default (needs_manual / pending) so a lookup can never
// silently mark a license active or expired.
func Normalize(raw string) Normalized {
	return Normalized{
		Status: NormalizeStatus(raw),
		Result: NormalizeResult(raw),
	}
}

// NormalizeStatus maps a raw status string to the canonical license status.
func NormalizeStatus(raw string) model.LicenseStatus {
	switch canonicalize(raw) {
	case "active":
		return model.LicenseStatusActive
	case "expired", "inactive":
		return model.LicenseStatusExpired
	case "suspended", "revoked":
		return model.LicenseStatusFlagged
	default:
		return model.LicenseStatusNeedsManual
	}
}

// NormalizeResult maps a raw status string to the verification result.
func NormalizeResult(raw string) model.VerificationResult {
	switch canonicalize(raw) {
	case "active":
		return model.ResultVerified
	case "expired":
		return model.ResultExpired
	default:
		return model.ResultPending
	}
}

func canonicalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
