package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/sources"
)

// RunService is the slice of the verification job service the handlers use.
type RunService interface {
	Run(ctx context.Context) (*model.RunSummary, error)
	RunForLicense(ctx context.Context, licenseID string) (*model.RunSummary, error)
	GetRun(ctx context.Context, id string) (*model.JobRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.JobRun, error)
}

// RunHandlers provides HTTP handlers for batch verification runs.
type RunHandlers struct {
	Svc      RunService
	Registry *sources.Registry
}

// Trigger handles POST /api/verify-runs. The body may name a single license;
// an empty body runs the full due set. The run executes synchronously and the
// summary is returned.
func (h *RunHandlers) Trigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LicenseID string `json:"license_id"`
	}
	if r.ContentLength > 0 {
		if !DecodeJSON(w, r, &body) {
			return
		}
	}

	if body.LicenseID != "" {
		summary, err := h.Svc.RunForLicense(r.Context(), body.LicenseID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := h.Svc.Run(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// GetByID handles GET /api/verify-runs/{id}.
func (h *RunHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	run, err := h.Svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// List handles GET /api/verify-runs, newest first.
func (h *RunHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	runs, err := h.Svc.ListRuns(r.Context(), limit, offset)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// Jurisdictions handles GET /api/jurisdictions: the sorted set of
// jurisdiction codes with automated lookup support.
func (h *RunHandlers) Jurisdictions(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "registry_unavailable",
			Err:     errors.New("source registry is not configured"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"automated": h.Registry.ListAutomated()})
}
