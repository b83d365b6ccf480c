package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// LicenseHandlers provides HTTP handlers for license CRUD operations.
type LicenseHandlers struct {
	Svc *service.LicenseService
}

// Create handles POST /api/licenses.
func (h *LicenseHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLicenseRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	lic, err := h.Svc.Create(r.Context(), SessionOrGuest(r.Context()), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, lic)
}

// GetByID handles GET /api/licenses/{id}.
func (h *LicenseHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	lic, err := h.Svc.Get(r.Context(), SessionOrGuest(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, lic)
}

// List handles GET /api/licenses with optional filters.
func (h *LicenseHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := licenseListOptions(r)
	out, err := h.Svc.List(r.Context(), SessionOrGuest(r.Context()), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"licenses": out})
}

// Update handles PUT /api/licenses/{id}.
func (h *LicenseHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateLicenseRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	lic, err := h.Svc.Update(r.Context(), SessionOrGuest(r.Context()), r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, lic)
}

// Delete handles DELETE /api/licenses/{id}. Licenses with verification
// history cannot be deleted, only archived.
func (h *LicenseHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Svc.Delete(r.Context(), SessionOrGuest(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("license not found"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func licenseListOptions(r *http.Request) model.LicenseListOptions {
	q := r.URL.Query()
	opts := model.LicenseListOptions{
		Sort: q.Get("sort"),
		Dir:  q.Get("dir"),
	}
	opts.Limit, opts.Offset = ParseLimitOffset(r, defaultListLimit, maxListLimit)

	if v := q.Get("person_id"); v != "" {
		opts.PersonID = &v
	}
	if v := q.Get("jurisdiction"); v != "" {
		code := model.NormalizeJurisdiction(v)
		opts.Jurisdiction = &code
	}
	if v := q.Get("status"); v != "" {
		status := model.LicenseStatus(v)
		opts.Status = &status
	}
	if v := q.Get("archived"); v != "" {
		if archived, err := strconv.ParseBool(v); err == nil {
			opts.Archived = &archived
		}
	}
	return opts
}
