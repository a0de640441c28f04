package api

import (
	"net/http"

	"github.com/taskveil/taskveil/internal/ratelimit"
)

type rateLimitsHandler struct {
	overrides *ratelimit.OverrideStore
}

func newRateLimitsHandler(overrides *ratelimit.OverrideStore) *rateLimitsHandler {
	return &rateLimitsHandler{overrides: overrides}
}

// List returns all configured chat rate overrides.
func (h *rateLimitsHandler) List(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.overrides.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list rate limits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rate_limits": overrides})
}

type setRateLimitRequest struct {
	Scope   string `json:"scope"`
	ScopeID string `json:"scope_id"`
	Rate    int    `json:"rate"`
}

// Set creates or replaces a chat rate override for an org or a user.
func (h *rateLimitsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setRateLimitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Scope != "org" && req.Scope != "user" {
		writeError(w, http.StatusBadRequest, "invalid_request", "scope must be org or user")
		return
	}
	if req.ScopeID == "" || req.Rate <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "scope_id and a positive rate are required")
		return
	}

	if err := h.overrides.Set(r.Context(), req.Scope, req.ScopeID, req.Rate); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to set rate limit")
		return
	}

	auditLog(r, "set", "rate_limit", req.ScopeID, "scope", req.Scope, "rate", req.Rate)
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a chat rate override, restoring the default.
func (h *rateLimitsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	scopeID := r.URL.Query().Get("scope_id")
	if scope == "" || scopeID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "scope and scope_id are required")
		return
	}

	if err := h.overrides.Delete(r.Context(), scope, scopeID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete rate limit")
		return
	}

	auditLog(r, "delete", "rate_limit", scopeID, "scope", scope)
	w.WriteHeader(http.StatusNoContent)
}
