package api

import (
	"net/http"
	"time"

	"github.com/taskveil/taskveil/internal/audit"
	"github.com/taskveil/taskveil/internal/auth"
)

type usageHandler struct {
	turns *audit.Store
}

func newUsageHandler(turns *audit.Store) *usageHandler {
	return &usageHandler{turns: turns}
}

// GetSummary returns aggregate chat-turn figures for the caller's
// organization, optionally filtered by user and time range.
func (h *usageHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())

	q := audit.Query{
		OrgID:  authed.OrgID,
		UserID: r.URL.Query().Get("user_id"),
	}
	var err error
	if q.From, err = parseTimeParam(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "from must be RFC 3339")
		return
	}
	if q.To, err = parseTimeParam(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "to must be RFC 3339")
		return
	}

	summary, err := h.turns.GetSummary(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to query usage")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetOutcomes returns global per-outcome turn counts.
func (h *usageHandler) GetOutcomes(w http.ResponseWriter, r *http.Request) {
	counts, err := h.turns.GetOutcomeCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to query outcomes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": counts})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
