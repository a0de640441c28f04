package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/task"
)

type tasksHandler struct {
	tasks *task.Service
}

func newTasksHandler(tasks *task.Service) *tasksHandler {
	return &tasksHandler{tasks: tasks}
}

// Create adds a task to the caller's organization. Attachment pseudonyms are
// paired with the submitted URLs inside the service.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in task.CreateTaskInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	authed := auth.UserFromContext(r.Context())
	in.OrgID = authed.OrgID
	in.CreatorID = authed.ID

	t, err := h.tasks.Create(r.Context(), in)
	if err != nil {
		if isTaskValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create task")
		return
	}

	auditLog(r, "create", "task", t.ID)
	writeJSON(w, http.StatusCreated, t)
}

// List returns all tasks in the caller's organization.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	tasks, err := h.tasks.ListByOrg(r.Context(), authed.OrgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Get returns one task by id, scoped to the caller's organization.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	t, err := h.tasks.GetByID(r.Context(), authed.OrgID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update applies a partial update. Replacing the attachment list keeps the
// pseudonyms of URLs that survive and mints fresh ones for new URLs.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in task.UpdateTaskInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	authed := auth.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	t, err := h.tasks.Update(r.Context(), authed.OrgID, id, in)
	if err != nil {
		if isTaskValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update task")
		return
	}

	auditLog(r, "update", "task", id)
	writeJSON(w, http.StatusOK, t)
}

// Delete removes a task from the caller's organization.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.tasks.Delete(r.Context(), authed.OrgID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete task")
		return
	}

	auditLog(r, "delete", "task", id)
	w.WriteHeader(http.StatusNoContent)
}

func isTaskValidation(err error) bool {
	return errors.Is(err, task.ErrTitleRequired) ||
		errors.Is(err, task.ErrStatusInvalid) ||
		errors.Is(err, task.ErrPriorityInvalid)
}
