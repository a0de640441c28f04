package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/metrics"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/pseudonym"
	"github.com/taskveil/taskveil/internal/user"
)

type authHandler struct {
	orgs    *org.Store
	users   *user.Store
	invites *invite.Store
	metrics *metrics.Metrics
}

func newAuthHandler(orgs *org.Store, users *user.Store, invites *invite.Store, m *metrics.Metrics) *authHandler {
	return &authHandler{orgs: orgs, users: users, invites: invites, metrics: m}
}

type registerRequest struct {
	OrgName  string `json:"org_name"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token        string            `json:"token"`
	User         *user.User        `json:"user"`
	Organization *org.Organization `json:"organization,omitempty"`
}

// Register creates a new organization with its first admin user. All
// pseudonyms are generated and collision-checked here, before the owning
// rows are inserted; the unique columns are the storage-level backstop.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	req.OrgName = strings.TrimSpace(req.OrgName)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.OrgName == "" || req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "org_name, name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	orgPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.orgs.PseudoNameExists), pseudonym.PrefixOrg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register")
		return
	}
	userPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.users.PseudoNameExists), pseudonym.PrefixUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register")
		return
	}
	emailPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.users.PseudoEmailExists), pseudonym.PrefixEmail)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register")
		return
	}

	o, err := h.orgs.Create(ctx, org.CreateOrganizationInput{
		Name:       req.OrgName,
		PseudoName: orgPseudo,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register")
		return
	}

	u, err := h.users.Create(ctx, user.CreateUserInput{
		OrgID:       o.ID,
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Role:        user.RoleAdmin,
		PseudoName:  userPseudo,
		PseudoEmail: emailPseudo,
	})
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", "A user with this email already exists")
		return
	}

	token, _, err := h.users.CreateSession(ctx, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}

	auditLog(r, "register", "organization", o.ID, "org_name", o.Name)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: u, Organization: o})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user by email and password and issues a session.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	ctx := r.Context()
	u, err := h.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil || !user.CheckPassword(u, req.Password) {
		if h.metrics != nil {
			h.metrics.IncAuthFailure("password")
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid email or password")
		return
	}

	token, _, err := h.users.CreateSession(ctx, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}

	if h.metrics != nil {
		h.metrics.IncAuthSuccess("password")
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: u})
}

// Logout deletes the presented session token.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		_ = h.users.DeleteSession(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	authed := auth.UserFromContext(r.Context())
	u, err := h.users.GetByID(r.Context(), authed.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type acceptRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Accept redeems an invitation token and creates the invited user. Redeeming
// first guards against two concurrent accepts of the same invitation.
func (h *authHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Token == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token and name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	inv, err := h.invites.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "Invitation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to look up invitation")
		return
	}
	if inv.Used {
		writeError(w, http.StatusConflict, "conflict", "Invitation has already been used")
		return
	}

	if _, err := h.invites.Redeem(ctx, inv.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "conflict", "Invitation has already been used")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to redeem invitation")
		return
	}

	userPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.users.PseudoNameExists), pseudonym.PrefixUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create user")
		return
	}
	emailPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(h.users.PseudoEmailExists), pseudonym.PrefixEmail)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create user")
		return
	}

	u, err := h.users.Create(ctx, user.CreateUserInput{
		OrgID:       inv.OrgID,
		Email:       inv.Email,
		Password:    req.Password,
		Name:        req.Name,
		Role:        inv.Role,
		PseudoName:  userPseudo,
		PseudoEmail: emailPseudo,
	})
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", "A user with this email already exists")
		return
	}

	token, _, err := h.users.CreateSession(ctx, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}

	auditLog(r, "accept_invitation", "invitation", inv.ID, "new_user_id", u.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: u})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
