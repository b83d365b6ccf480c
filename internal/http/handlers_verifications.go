package httpx

import (
	"net/http"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/service"
)

// VerificationHandlers provides HTTP handlers for verification history and
// manual verification entry.
type VerificationHandlers struct {
	Recorder *service.RecorderService
}

// ListByLicense handles GET /api/licenses/{id}/verifications.
func (h *VerificationHandlers) ListByLicense(w http.ResponseWriter, r *http.Request) {
	licenseID := r.PathValue("id")
	opts := model.VerificationListOptions{LicenseID: &licenseID}
	opts.Limit, opts.Offset = ParseLimitOffset(r, defaultListLimit, maxListLimit)

	q := r.URL.Query()
	if v := q.Get("result"); v != "" {
		result := model.VerificationResult(v)
		opts.Result = &result
	}
	if v := q.Get("run_type"); v != "" {
		runType := model.RunType(v)
		opts.RunType = &runType
	}

	out, err := h.Recorder.ListByLicense(r.Context(), SessionOrGuest(r.Context()), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"verifications": out})
}

// RecordManual handles POST /api/licenses/{id}/verifications. A human
// reviewer records what they found; the entry goes through the same status
// projection as automated lookups.
func (h *VerificationHandlers) RecordManual(w http.ResponseWriter, r *http.Request) {
	var input service.ManualVerificationInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	v, err := h.Recorder.RecordManual(r.Context(), SessionOrGuest(r.Context()), r.PathValue("id"), input)
	if err != nil {
		// The recorder can persist the verification yet fail to project it
		// onto the license row. The entry is durable in that case, so report
		// it rather than pretending the write failed wholesale.
		if v != nil {
			WriteJSON(w, http.StatusCreated, map[string]any{
				"verification": v,
				"warning":      "verification recorded but license status projection failed",
			})
			return
		}
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, v)
}

// GetByID handles GET /api/verifications/{id}.
func (h *VerificationHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	v, err := h.Recorder.Get(r.Context(), SessionOrGuest(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}
