package httpx

import (
	"net/http"

	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/service"
)

// TaskHandlers provides HTTP handlers for the manual verification work queue.
type TaskHandlers struct {
	Engine *service.TaskEngine
}

// List handles GET /api/tasks with optional filters, highest priority first.
func (h *TaskHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := model.TaskListOptions{}
	opts.Limit, opts.Offset = ParseLimitOffset(r, defaultListLimit, maxListLimit)

	q := r.URL.Query()
	if v := q.Get("license_id"); v != "" {
		opts.LicenseID = &v
	}
	if v := q.Get("status"); v != "" {
		status := model.TaskStatus(v)
		opts.Status = &status
	}
	if v := q.Get("assignee"); v != "" {
		opts.Assignee = &v
	}

	out, err := h.Engine.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

// GetByID handles GET /api/tasks/{id}.
func (h *TaskHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	task, err := h.Engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// Update handles PUT /api/tasks/{id}: claiming, reprioritizing, or closing a
// task.
func (h *TaskHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTaskRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	task, err := h.Engine.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}
