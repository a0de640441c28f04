// Package assistant implements the privacy-preserving gateway between the
// application's data and the external model provider. Real identifying
// values (names, emails, invitation tokens, attachment URLs) are replaced
// with stored pseudonyms before any text leaves the system, and the model's
// pseudonymous answer is mapped back before it reaches the caller.
package assistant

import (
	"fmt"
	"strings"
	"time"
)

// OrganizationView carries both representations of the organization's
// identity for one snapshot.
type OrganizationView struct {
	Name       string
	PseudoName string
	CreatedAt  time.Time
}

// MemberView carries both representations of one member's identity.
type MemberView struct {
	ID          string
	Name        string
	Email       string
	Role        string
	PseudoName  string
	PseudoEmail string
	CreatedAt   time.Time
}

// AttachmentView pairs a stored attachment pseudonym with the real file
// reference it stands in for.
type AttachmentView struct {
	PseudoID  string
	RealValue string
}

// TodoView is one checklist entry with its per-snapshot ephemeral pseudonym.
// Todo pseudonyms are minted fresh on every build and never persisted.
type TodoView struct {
	PseudoID  string
	Text      string
	Completed bool
}

// TaskView is the snapshot projection of one task. Title, description and
// status are not identifying and stay real; the attachment list is parallel
// to the task's stored attachments by construction.
type TaskView struct {
	Title       string
	Description string
	Status      string
	Priority    string
	CreatorID   string
	AssigneeID  string
	DueDate     *time.Time
	CreatedAt   time.Time
	Attachments []AttachmentView
	Todos       []TodoView
}

// InvitationView carries both representations of one invitation credential.
type InvitationView struct {
	Email       string
	Role        string
	Token       string
	PseudoToken string
	Used        bool
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

// Stats are the aggregate figures included in the rendered context.
type Stats struct {
	Members            int
	Tasks              int
	Invitations        int
	Accepted           int
	AvgAcceptanceHours float64
}

// Snapshot is the assembled real+pseudonymous projection of one
// organization's data. It is transient: held only in the cache for the TTL
// or for the duration of a single request, never persisted.
type Snapshot struct {
	Org         OrganizationView
	Admin       MemberView
	Members     []MemberView
	Tasks       []TaskView
	Invitations []InvitationView
	Stats       Stats
	BuiltAt     time.Time

	toPseudo []rule
	toReal   []rule
}

// valid reports whether the snapshot still has the minimal shape a chat turn
// needs. A cached entry failing this check is discarded and rebuilt.
func (s *Snapshot) valid() bool {
	if s == nil {
		return false
	}
	if s.Org.Name == "" || s.Org.PseudoName == "" {
		return false
	}
	if s.Admin.Name == "" || s.Admin.PseudoName == "" {
		return false
	}
	return s.toPseudo != nil && s.toReal != nil
}

// memberPseudo resolves a user id to that member's pseudonym, for rendering
// task creator/assignee references. Unknown ids render as "someone" rather
// than leaking the raw id into the prompt.
func (s *Snapshot) memberPseudo(userID string) string {
	if userID == "" {
		return ""
	}
	if s.Admin.ID == userID {
		return s.Admin.PseudoName
	}
	for _, m := range s.Members {
		if m.ID == userID {
			return m.PseudoName
		}
	}
	return "someone"
}

// RenderContext serializes the snapshot into the plain-text context block
// sent to the model. All identifying fields are rendered from the
// pseudonymous side; call it on a secured clone so free-text fields are
// already markup-stripped.
func (s *Snapshot) RenderContext() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Organization: %s (created %s)\n", s.Org.PseudoName, s.Org.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Admin: %s <%s>\n", s.Admin.PseudoName, s.Admin.PseudoEmail)

	fmt.Fprintf(&b, "\nMembers (%d):\n", s.Stats.Members)
	for _, m := range s.Members {
		fmt.Fprintf(&b, "- %s <%s>, role %s, joined %s\n",
			m.PseudoName, m.PseudoEmail, m.Role, m.CreatedAt.Format("2006-01-02"))
	}

	fmt.Fprintf(&b, "\nTasks (%d):\n", s.Stats.Tasks)
	for i, t := range s.Tasks {
		fmt.Fprintf(&b, "%d. %q [%s, %s priority]", i+1, t.Title, t.Status, t.Priority)
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", t.DueDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
		if t.Description != "" {
			fmt.Fprintf(&b, "   %s\n", t.Description)
		}
		if creator := s.memberPseudo(t.CreatorID); creator != "" {
			fmt.Fprintf(&b, "   created by %s", creator)
			if assignee := s.memberPseudo(t.AssigneeID); assignee != "" {
				fmt.Fprintf(&b, ", assigned to %s", assignee)
			}
			b.WriteString("\n")
		}
		for _, a := range t.Attachments {
			fmt.Fprintf(&b, "   attachment: %s\n", a.PseudoID)
		}
		for _, td := range t.Todos {
			mark := " "
			if td.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "   [%s] %s: %s\n", mark, td.PseudoID, td.Text)
		}
	}

	fmt.Fprintf(&b, "\nInvitations: %d issued, %d accepted", s.Stats.Invitations, s.Stats.Accepted)
	if s.Stats.Accepted > 0 {
		fmt.Fprintf(&b, ", average acceptance %.1f hours", s.Stats.AvgAcceptanceHours)
	}
	b.WriteString("\n")
	for _, inv := range s.Invitations {
		state := "pending"
		if inv.Used {
			state = "accepted"
		}
		fmt.Fprintf(&b, "- %s (%s, role %s, sent %s)\n",
			inv.PseudoToken, state, inv.Role, inv.CreatedAt.Format("2006-01-02"))
	}

	return b.String()
}
