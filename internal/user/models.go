package user

import "time"

// Roles a user can hold within their organization.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a member of exactly one organization. PseudoName and PseudoEmail
// are the opaque stand-ins issued at creation time; they are stable for the
// user's lifetime and are the only identity the assistant's model ever sees.
type User struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PseudoName   string    `json:"-"`
	PseudoEmail  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserInput holds the fields required to create a new user. Pseudonyms
// must already be generated and collision-checked by the caller.
type CreateUserInput struct {
	OrgID       string
	Email       string
	Password    string
	Name        string
	Role        string
	PseudoName  string
	PseudoEmail string
}

// UpdateUserInput holds optional fields for a partial user update.
// Pseudonyms are deliberately absent; they never change.
type UpdateUserInput struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// Session represents an active user session.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
