package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/task"
	"github.com/taskveil/taskveil/internal/user"
)

type fakeOrgReader struct {
	org *org.Organization
	err error
}

func (f *fakeOrgReader) GetByID(ctx context.Context, id string) (*org.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.org, nil
}

type fakeMemberReader struct {
	users []*user.User
	err   error
}

func (f *fakeMemberReader) ListByOrg(ctx context.Context, orgID string) ([]*user.User, error) {
	return f.users, f.err
}

type fakeTaskReader struct {
	tasks []*task.Task
	err   error
}

func (f *fakeTaskReader) ListByOrg(ctx context.Context, orgID string) ([]*task.Task, error) {
	return f.tasks, f.err
}

type fakeInviteReader struct {
	invites []*invite.Invitation
	err     error
}

func (f *fakeInviteReader) ListByOrg(ctx context.Context, orgID string) ([]*invite.Invitation, error) {
	return f.invites, f.err
}

func testReaders() (*fakeOrgReader, *fakeMemberReader, *fakeTaskReader, *fakeInviteReader) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	accepted := created.Add(6 * time.Hour)
	return &fakeOrgReader{
			org: &org.Organization{ID: "o1", Name: "Acme", PseudoName: "org_7f3a1b2c9d", CreatedAt: created},
		},
		&fakeMemberReader{
			users: []*user.User{
				{ID: "u1", OrgID: "o1", Name: "Dana", Email: "dana@acme.test", Role: user.RoleAdmin,
					PseudoName: "user_1122334455", PseudoEmail: "email_aabbccdd00", CreatedAt: created},
				{ID: "u2", OrgID: "o1", Name: "Anna", Email: "anna@acme.test", Role: user.RoleMember,
					PseudoName: "user_0987654321", PseudoEmail: "email_1122aabbcc", CreatedAt: created},
			},
		},
		&fakeTaskReader{
			tasks: []*task.Task{
				{
					ID: "t1", OrgID: "o1", CreatorID: "u1", Title: "Ship Q3 report",
					Status: task.StatusInProgress, Priority: task.PriorityHigh,
					Attachments: []task.Attachment{{URL: "https://files.acme.test/q3.pdf", PseudoID: "att_f0e1d2c3b4"}},
					Todos:       []task.TodoItem{{Text: "draft numbers", Completed: true}, {Text: "review"}},
					CreatedAt:   created,
				},
			},
		},
		&fakeInviteReader{
			invites: []*invite.Invitation{
				{ID: "i1", OrgID: "o1", Email: "new@acme.test", Role: "member",
					Token: "tok445566778899aabbccddeeff001122", PseudoToken: "inv_deadbeef01",
					Used: true, AcceptedAt: &accepted, CreatedAt: created},
				{ID: "i2", OrgID: "o1", Email: "other@acme.test", Role: "member",
					Token: "tokffeeddccbbaa998877665544332211", PseudoToken: "inv_cafebabe02",
					CreatedAt: created},
			},
		}
}

func TestBuildSnapshot(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	a := NewAssembler(orgs, users, tasks, invites)

	snap, err := a.Build(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap.Org.Name != "Acme" || snap.Org.PseudoName != "org_7f3a1b2c9d" {
		t.Errorf("org view = %+v", snap.Org)
	}
	if snap.Admin.Name != "Dana" {
		t.Errorf("admin = %+v, want Dana", snap.Admin)
	}
	if !snap.valid() {
		t.Error("built snapshot fails structural validation")
	}

	if snap.Stats.Members != 2 || snap.Stats.Tasks != 1 || snap.Stats.Invitations != 2 {
		t.Errorf("stats = %+v", snap.Stats)
	}
	if snap.Stats.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", snap.Stats.Accepted)
	}
	if snap.Stats.AvgAcceptanceHours != 6 {
		t.Errorf("avg acceptance = %v, want 6", snap.Stats.AvgAcceptanceHours)
	}
}

func TestBuildAttachmentsParallel(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	a := NewAssembler(orgs, users, tasks, invites)

	snap, err := a.Build(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	atts := snap.Tasks[0].Attachments
	stored := tasks.tasks[0].Attachments
	if len(atts) != len(stored) {
		t.Fatalf("got %d attachment views, want %d", len(atts), len(stored))
	}
	for i := range atts {
		if atts[i].RealValue != stored[i].URL || atts[i].PseudoID != stored[i].PseudoID {
			t.Errorf("attachment %d = %+v, stored %+v", i, atts[i], stored[i])
		}
	}
}

func TestBuildTodoPseudonymsEphemeral(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	a := NewAssembler(orgs, users, tasks, invites)

	first, err := a.Build(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := a.Build(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range first.Tasks[0].Todos {
		a, b := first.Tasks[0].Todos[i], second.Tasks[0].Todos[i]
		if a.PseudoID == "" || b.PseudoID == "" {
			t.Fatal("todo missing pseudonym")
		}
		if a.PseudoID == b.PseudoID {
			t.Errorf("todo %d pseudonym %q reused across builds", i, a.PseudoID)
		}
	}
}

func TestBuildOrgNotFound(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	orgs.err = fmt.Errorf("getting organization by id: %w", pgx.ErrNoRows)
	a := NewAssembler(orgs, users, tasks, invites)

	_, err := a.Build(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBuildNoAdmin(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	users.users = users.users[1:] // drop Dana, only the member remains
	a := NewAssembler(orgs, users, tasks, invites)

	_, err := a.Build(context.Background(), "o1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBuildStorageError(t *testing.T) {
	orgs, users, tasks, invites := testReaders()
	tasks.err = errors.New("connection refused")
	a := NewAssembler(orgs, users, tasks, invites)

	_, err := a.Build(context.Background(), "o1")
	if !errors.Is(err, ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestStatsZeroAccepted(t *testing.T) {
	s := &Snapshot{
		Invitations: []InvitationView{
			{Token: "a", PseudoToken: "inv_a", CreatedAt: time.Now()},
			{Token: "b", PseudoToken: "inv_b", CreatedAt: time.Now()},
		},
	}
	st := deriveStats(s)
	if st.Accepted != 0 {
		t.Errorf("accepted = %d, want 0", st.Accepted)
	}
	if st.AvgAcceptanceHours != 0 {
		t.Errorf("avg acceptance = %v, want 0", st.AvgAcceptanceHours)
	}
}
