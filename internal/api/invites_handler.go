package api

import (
	"net/http"
	"strings"

	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/pseudonym"
	"github.com/taskveil/taskveil/internal/user"
)

type invitesHandler struct {
	invites *invite.Store
}

func newInvitesHandler(invites *invite.Store) *invitesHandler {
	return &invitesHandler{invites: invites}
}

type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type createInviteResponse struct {
	Invitation *invite.Invitation `json:"invitation"`
	Token      string             `json:"token"`
}

// Create issues a new invitation. The real token is returned exactly once
// here, for the admin to hand to the invitee; afterwards only the gateway's
// snapshot assembly ever reads it back.
func (h *invitesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	if req.Role == "" {
		req.Role = user.RoleMember
	}
	if req.Role != user.RoleAdmin && req.Role != user.RoleMember {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be admin or member")
		return
	}

	ctx := r.Context()
	token, err := invite.NewToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create invitation")
		return
	}
	pseudoToken, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.invites.PseudoTokenExists), pseudonym.PrefixInvitation)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create invitation")
		return
	}

	authed := auth.UserFromContext(ctx)
	inv, err := h.invites.Create(ctx, invite.CreateInvitationInput{
		OrgID:       authed.OrgID,
		Email:       req.Email,
		Role:        req.Role,
		Token:       token,
		PseudoToken: pseudoToken,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create invitation")
		return
	}

	auditLog(r, "create", "invitation", inv.ID, "invitee_email", req.Email)
	writeJSON(w, http.StatusCreated, createInviteResponse{Invitation: inv, Token: token})
}

// List returns all invitations for the caller's organization.
func (h *invitesHandler) List(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	invs, err := h.invites.ListByOrg(r.Context(), authed.OrgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list invitations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}
