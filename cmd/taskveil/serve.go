package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/taskveil/taskveil/internal/api"
	"github.com/taskveil/taskveil/internal/assistant"
	"github.com/taskveil/taskveil/internal/audit"
	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/config"
	"github.com/taskveil/taskveil/internal/crypto"
	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/llm"
	"github.com/taskveil/taskveil/internal/metrics"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/pseudonym"
	"github.com/taskveil/taskveil/internal/ratelimit"
	"github.com/taskveil/taskveil/internal/task"
	"github.com/taskveil/taskveil/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Taskveil server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// sessionLookup adapts the user store's session queries to the auth layer.
type sessionLookup struct {
	users *user.Store
}

func (s sessionLookup) LookupSession(ctx context.Context, token string) (*auth.User, error) {
	u, err := s.users.GetSessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.User{ID: u.ID, OrgID: u.OrgID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	cipher, err := crypto.NewCipher(cfg.Invite.TokenKey)
	if err != nil {
		return err
	}

	orgStore := org.NewStore(pool)
	userStore := user.NewStore(pool)
	inviteStore := invite.NewStore(pool, cipher)
	taskStore := task.NewStore(pool)
	taskService := task.NewService(taskStore, pseudonym.ScopeFunc(taskStore.PseudoAttachmentExists))

	auditStore := audit.NewStore(pool)
	collector := audit.NewCollector(auditStore, cfg.Audit.BatchSize, cfg.Audit.FlushInterval)
	go collector.Start(ctx)

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	assembler := assistant.NewAssembler(orgStore, userStore, taskStore, inviteStore)
	cache := assistant.NewCache(cfg.Assistant.SnapshotTTL)
	policy := assistant.NewPolicy(cfg.Assistant.MaxMessageLength)
	completer := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens,
		&http.Client{Timeout: cfg.LLM.Timeout})
	gateway := assistant.NewGateway(assembler, cache, policy, completer, logger)

	overrides := ratelimit.NewOverrideStore(pool)
	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)
	chatLimiter := ratelimit.NewChatLimiter(overrides, limiter)

	authService := auth.NewService(sessionLookup{users: userStore})

	router := api.NewRouter(api.RouterDeps{
		OrgStore:    orgStore,
		UserStore:   userStore,
		InviteStore: inviteStore,
		TaskService: taskService,
		AuditStore:  auditStore,
		Collector:   collector,
		Auth:        authService,
		ChatLimiter: chatLimiter,
		Gateway:     gateway,
		Overrides:   overrides,
		Metrics:     m,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		ChatTimeout: cfg.LLM.Timeout,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}
