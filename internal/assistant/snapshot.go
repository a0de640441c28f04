package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/pseudonym"
	"github.com/taskveil/taskveil/internal/task"
	"github.com/taskveil/taskveil/internal/user"
)

// OrgReader resolves an organization by id.
type OrgReader interface {
	GetByID(ctx context.Context, id string) (*org.Organization, error)
}

// MemberReader lists an organization's users, admins first.
type MemberReader interface {
	ListByOrg(ctx context.Context, orgID string) ([]*user.User, error)
}

// TaskReader lists an organization's tasks.
type TaskReader interface {
	ListByOrg(ctx context.Context, orgID string) ([]*task.Task, error)
}

// InviteReader lists an organization's invitations with real tokens resolved.
type InviteReader interface {
	ListByOrg(ctx context.Context, orgID string) ([]*invite.Invitation, error)
}

// Assembler builds context snapshots by projecting the organization's
// current data. It performs reads only; pseudonym assignment happens at
// entity creation, not here, except for the ephemeral todo ids.
type Assembler struct {
	orgs    OrgReader
	users   MemberReader
	tasks   TaskReader
	invites InviteReader
	now     func() time.Time
}

// NewAssembler wires an Assembler over the given readers.
func NewAssembler(orgs OrgReader, users MemberReader, tasks TaskReader, invites InviteReader) *Assembler {
	return &Assembler{
		orgs:    orgs,
		users:   users,
		tasks:   tasks,
		invites: invites,
		now:     time.Now,
	}
}

// Build assembles the full snapshot for one organization. It fails with
// ErrNotFound when the organization or its admin cannot be resolved; a
// partial snapshot is never returned.
func (a *Assembler) Build(ctx context.Context, orgID string) (*Snapshot, error) {
	o, err := a.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
		}
		return nil, fmt.Errorf("%w: loading organization: %v", ErrStorage, err)
	}

	members, err := a.users.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing members: %v", ErrStorage, err)
	}

	snap := &Snapshot{
		Org: OrganizationView{
			Name:       o.Name,
			PseudoName: o.PseudoName,
			CreatedAt:  o.CreatedAt,
		},
		BuiltAt: a.now(),
	}

	for _, m := range members {
		view := MemberView{
			ID:          m.ID,
			Name:        m.Name,
			Email:       m.Email,
			Role:        m.Role,
			PseudoName:  m.PseudoName,
			PseudoEmail: m.PseudoEmail,
			CreatedAt:   m.CreatedAt,
		}
		if m.Role == user.RoleAdmin && snap.Admin.ID == "" {
			snap.Admin = view
		}
		snap.Members = append(snap.Members, view)
	}
	if snap.Admin.ID == "" {
		return nil, fmt.Errorf("%w: organization %s has no admin", ErrNotFound, orgID)
	}

	tasks, err := a.tasks.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing tasks: %v", ErrStorage, err)
	}
	for _, t := range tasks {
		tv, err := taskView(t)
		if err != nil {
			return nil, err
		}
		snap.Tasks = append(snap.Tasks, tv)
	}

	invites, err := a.invites.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing invitations: %v", ErrStorage, err)
	}
	for _, inv := range invites {
		snap.Invitations = append(snap.Invitations, InvitationView{
			Email:       inv.Email,
			Role:        inv.Role,
			Token:       inv.Token,
			PseudoToken: inv.PseudoToken,
			Used:        inv.Used,
			AcceptedAt:  inv.AcceptedAt,
			CreatedAt:   inv.CreatedAt,
		})
	}

	snap.Stats = deriveStats(snap)
	snap.compileSubstitutions()
	return snap, nil
}

// taskView projects one task, minting a fresh ephemeral pseudonym for each
// checklist entry. Attachment pseudonyms come from the stored pairs.
func taskView(t *task.Task) (TaskView, error) {
	tv := TaskView{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatorID:   t.CreatorID,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
	}
	if t.AssigneeID != nil {
		tv.AssigneeID = *t.AssigneeID
	}
	for _, a := range t.Attachments {
		tv.Attachments = append(tv.Attachments, AttachmentView{
			PseudoID:  a.PseudoID,
			RealValue: a.URL,
		})
	}
	for _, td := range t.Todos {
		id, err := pseudonym.Ephemeral(pseudonym.PrefixTodo)
		if err != nil {
			return TaskView{}, fmt.Errorf("%w: minting todo pseudonym: %v", ErrStorage, err)
		}
		tv.Todos = append(tv.Todos, TodoView{
			PseudoID:  id,
			Text:      td.Text,
			Completed: td.Completed,
		})
	}
	return tv, nil
}

// deriveStats computes the aggregate figures. Average acceptance latency is
// defined as 0 when no invitation has been accepted.
func deriveStats(s *Snapshot) Stats {
	st := Stats{
		Members:     len(s.Members),
		Tasks:       len(s.Tasks),
		Invitations: len(s.Invitations),
	}
	var totalHours float64
	for _, inv := range s.Invitations {
		if inv.Used && inv.AcceptedAt != nil {
			st.Accepted++
			totalHours += inv.AcceptedAt.Sub(inv.CreatedAt).Hours()
		}
	}
	if st.Accepted > 0 {
		st.AvgAcceptanceHours = totalHours / float64(st.Accepted)
	}
	return st
}
