package auth

import "context"

// User is the authenticated identity carried through a request. The chat
// gateway trusts ID and OrgID as already validated by this layer.
type User struct {
	ID    string
	OrgID string
	Email string
	Name  string
	Role  string // "admin" or "member"
}

// IsAdmin returns true if the user administers their organization.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// SessionLookup resolves a plaintext session token to a user.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}

// Service provides authentication operations backed by a session store.
type Service struct {
	sessions SessionLookup
}

// NewService creates a new authentication service.
func NewService(sessions SessionLookup) *Service {
	return &Service{sessions: sessions}
}

// Lookup resolves a session token to its user.
func (s *Service) Lookup(ctx context.Context, token string) (*User, error) {
	return s.sessions.LookupSession(ctx, token)
}
