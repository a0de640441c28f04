package invite

import "time"

// Invitation is the credential that lets someone join an organization.
// Token is the real secret handed to the invitee; PseudoToken is the opaque
// stand-in shown to the assistant's model in its place. Invitations are
// never deleted: redeemed rows keep their AcceptedAt so acceptance-latency
// statistics can be derived later.
type Invitation struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Token       string     `json:"-"`
	PseudoToken string     `json:"-"`
	Used        bool       `json:"used"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateInvitationInput holds the fields required to issue an invitation.
// Token and PseudoToken must already be generated by the caller.
type CreateInvitationInput struct {
	OrgID       string
	Email       string
	Role        string
	Token       string
	PseudoToken string
}
