package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/taskveil/taskveil/internal/config"
	"github.com/taskveil/taskveil/internal/crypto"
	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/pseudonym"
	"github.com/taskveil/taskveil/internal/task"
	"github.com/taskveil/taskveil/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo organization with members, tasks and an invitation",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const (
	demoAdminEmail    = "dana@acme.test"
	demoAdminPassword = "demo-password-1"
)

type demoMember struct {
	name  string
	email string
}

var demoMembers = []demoMember{
	{name: "Anna Kovacs", email: "anna@acme.test"},
	{name: "Ann Byrne", email: "ann@acme.test"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cipher, err := crypto.NewCipher(cfg.Invite.TokenKey)
	if err != nil {
		return err
	}

	orgStore := org.NewStore(pool)
	userStore := user.NewStore(pool)
	inviteStore := invite.NewStore(pool, cipher)
	taskStore := task.NewStore(pool)
	taskService := task.NewService(taskStore, pseudonym.ScopeFunc(taskStore.PseudoAttachmentExists))

	// Check if seed has already run.
	if _, err := userStore.GetByEmail(ctx, demoAdminEmail); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	orgPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(orgStore.PseudoNameExists), pseudonym.PrefixOrg)
	if err != nil {
		return fmt.Errorf("generating organization pseudonym: %w", err)
	}
	o, err := orgStore.Create(ctx, org.CreateOrganizationInput{Name: "Acme", PseudoName: orgPseudo})
	if err != nil {
		return fmt.Errorf("creating demo organization: %w", err)
	}
	slog.Info("created organization", "name", o.Name, "id", o.ID)

	admin, err := createDemoUser(ctx, userStore, o.ID, "Dana Whitfield", demoAdminEmail, demoAdminPassword, user.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("created admin", "name", admin.Name, "id", admin.ID)

	members := []*user.User{admin}
	for _, m := range demoMembers {
		u, err := createDemoUser(ctx, userStore, o.ID, m.name, m.email, demoAdminPassword, user.RoleMember)
		if err != nil {
			return err
		}
		slog.Info("created member", "name", u.Name, "id", u.ID)
		members = append(members, u)
	}

	due := time.Now().AddDate(0, 0, 7)
	demoTasks := []task.CreateTaskInput{
		{
			OrgID:       o.ID,
			CreatorID:   admin.ID,
			AssigneeID:  &members[1].ID,
			Title:       "Prepare Q3 report",
			Description: "Compile revenue and churn figures for the quarterly review.",
			Status:      task.StatusInProgress,
			Priority:    task.PriorityHigh,
			DueDate:     &due,
			AttachmentURLs: []string{
				"https://files.acme.test/q3-draft.pdf",
			},
			Todos: []task.TodoItem{
				{Text: "Collect revenue numbers", Completed: true},
				{Text: "Write executive summary", Completed: false},
			},
		},
		{
			OrgID:       o.ID,
			CreatorID:   admin.ID,
			AssigneeID:  &members[2].ID,
			Title:       "Refresh onboarding docs",
			Description: "Update the welcome guide for new hires.",
			Status:      task.StatusTodo,
			Priority:    task.PriorityMedium,
		},
		{
			OrgID:     o.ID,
			CreatorID: admin.ID,
			Title:     "Renew office lease",
			Status:    task.StatusTodo,
			Priority:  task.PriorityLow,
		},
	}
	for _, in := range demoTasks {
		t, err := taskService.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating demo task %q: %w", in.Title, err)
		}
		slog.Info("created task", "title", t.Title, "id", t.ID)
	}

	token, err := invite.NewToken()
	if err != nil {
		return fmt.Errorf("generating invitation token: %w", err)
	}
	tokenPseudo, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(inviteStore.PseudoTokenExists), pseudonym.PrefixInvitation)
	if err != nil {
		return fmt.Errorf("generating invitation pseudonym: %w", err)
	}
	inv, err := inviteStore.Create(ctx, invite.CreateInvitationInput{
		OrgID:       o.ID,
		Email:       "casey@acme.test",
		Role:        user.RoleMember,
		Token:       token,
		PseudoToken: tokenPseudo,
	})
	if err != nil {
		return fmt.Errorf("creating demo invitation: %w", err)
	}
	slog.Info("created invitation", "email", inv.Email, "id", inv.ID)

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Organization: %s (%s)\n", o.Name, o.PseudoName)
	fmt.Printf("Admin login:  %s / %s\n", demoAdminEmail, demoAdminPassword)
	fmt.Printf("Invite token: %s\n", token)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":%q,\"password\":%q}'\n",
		demoAdminEmail, demoAdminPassword)
	fmt.Printf("  curl -X POST -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/chat -d '{\"message\":\"What tasks are open?\"}'\n")

	return nil
}

func createDemoUser(ctx context.Context, users *user.Store, orgID, name, email, password, role string) (*user.User, error) {
	pseudoName, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(users.PseudoNameExists), pseudonym.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generating user pseudonym: %w", err)
	}
	pseudoEmail, err := pseudonym.Generate(ctx, pseudonym.ScopeFunc(users.PseudoEmailExists), pseudonym.PrefixEmail)
	if err != nil {
		return nil, fmt.Errorf("generating email pseudonym: %w", err)
	}
	u, err := users.Create(ctx, user.CreateUserInput{
		OrgID:       orgID,
		Email:       email,
		Password:    password,
		Name:        name,
		Role:        role,
		PseudoName:  pseudoName,
		PseudoEmail: pseudoEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("creating demo user %q: %w", email, err)
	}
	return u, nil
}
