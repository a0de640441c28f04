package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/user"
)

type membersHandler struct {
	orgs  *org.Store
	users *user.Store
}

func newMembersHandler(orgs *org.Store, users *user.Store) *membersHandler {
	return &membersHandler{orgs: orgs, users: users}
}

// GetOrganization returns the caller's organization.
func (h *membersHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	o, err := h.orgs.GetByID(r.Context(), authed.OrgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "Organization not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load organization")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListMembers returns all users in the caller's organization, admins first.
func (h *membersHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	members, err := h.users.ListByOrg(r.Context(), authed.OrgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// UpdateMember applies a partial update to a member of the caller's
// organization. Pseudonyms are not updatable; they are issued once.
func (h *membersHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authed := auth.UserFromContext(r.Context())

	target, err := h.users.GetByID(r.Context(), id)
	if err != nil || target.OrgID != authed.OrgID {
		writeError(w, http.StatusNotFound, "not_found", "Member not found")
		return
	}

	var in user.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if in.Role != nil && *in.Role != user.RoleAdmin && *in.Role != user.RoleMember {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be admin or member")
		return
	}

	updated, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "Member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update member")
		return
	}

	auditLog(r, "update", "member", id)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMember removes a member from the caller's organization. Admins
// cannot delete themselves; an organization always keeps its admin.
func (h *membersHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authed := auth.UserFromContext(r.Context())

	if id == authed.ID {
		writeError(w, http.StatusBadRequest, "invalid_request", "You cannot remove yourself")
		return
	}

	target, err := h.users.GetByID(r.Context(), id)
	if err != nil || target.OrgID != authed.OrgID {
		writeError(w, http.StatusNotFound, "not_found", "Member not found")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete member")
		return
	}

	auditLog(r, "delete", "member", id)
	w.WriteHeader(http.StatusNoContent)
}
