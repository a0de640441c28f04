package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskveil/taskveil/internal/assistant"
	"github.com/taskveil/taskveil/internal/audit"
	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/invite"
	"github.com/taskveil/taskveil/internal/metrics"
	"github.com/taskveil/taskveil/internal/org"
	"github.com/taskveil/taskveil/internal/ratelimit"
	"github.com/taskveil/taskveil/internal/task"
	"github.com/taskveil/taskveil/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	OrgStore    *org.Store
	UserStore   *user.Store
	InviteStore *invite.Store
	TaskService *task.Service
	AuditStore  *audit.Store
	Collector   *audit.Collector
	Auth        *auth.Service
	ChatLimiter *ratelimit.ChatLimiter
	Gateway     *assistant.Gateway
	Overrides   *ratelimit.OverrideStore
	Metrics     *metrics.Metrics
	CORSOrigins []string
	ChatTimeout time.Duration
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.CORSOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	authH := newAuthHandler(deps.OrgStore, deps.UserStore, deps.InviteStore, deps.Metrics)
	members := newMembersHandler(deps.OrgStore, deps.UserStore)
	invites := newInvitesHandler(deps.InviteStore)
	tasks := newTasksHandler(deps.TaskService)
	chat := newChatHandler(deps.Gateway, deps.Collector, deps.Metrics, deps.ChatTimeout)
	limits := newRateLimitsHandler(deps.Overrides)
	usage := newUsageHandler(deps.AuditStore)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics summary.
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	// Public (unauthenticated) routes.
	r.Post("/api/v1/auth/register", authH.Register)
	r.Post("/api/v1/auth/login", authH.Login)
	r.Post("/api/v1/auth/accept", authH.Accept)

	// Member routes (any authenticated user).
	r.Route("/api/v1", func(mr chi.Router) {
		mr.Use(auth.MemberMiddleware(deps.Auth))

		mr.Post("/auth/logout", authH.Logout)
		mr.Get("/auth/me", authH.Me)

		mr.Get("/org", members.GetOrganization)
		mr.Get("/members", members.ListMembers)

		mr.Get("/tasks", tasks.List)
		mr.Post("/tasks", tasks.Create)
		mr.Get("/tasks/{id}", tasks.Get)
		mr.Put("/tasks/{id}", tasks.Update)
		mr.Delete("/tasks/{id}", tasks.Delete)

		// The assistant endpoint carries the chat rate limit.
		mr.Group(func(cr chi.Router) {
			var onReject []func()
			if deps.Metrics != nil {
				onReject = append(onReject, func() { deps.Metrics.IncRateLimitRejection("chat") })
			}
			cr.Use(ratelimit.Middleware(deps.ChatLimiter, onReject...))
			cr.Post("/chat", chat.Chat)
		})
	})

	// Admin routes.
	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(auth.AdminMiddleware(deps.Auth))

		ar.Post("/invitations", invites.Create)
		ar.Get("/invitations", invites.List)

		ar.Put("/members/{id}", members.UpdateMember)
		ar.Delete("/members/{id}", members.DeleteMember)

		ar.Get("/rate-limits", limits.List)
		ar.Put("/rate-limits", limits.Set)
		ar.Delete("/rate-limits", limits.Delete)

		ar.Get("/usage", usage.GetSummary)
		ar.Get("/usage/outcomes", usage.GetOutcomes)
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
		)
	})
}

// metricsMiddleware records request counts and durations per route pattern.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.IncHTTPRequest(r.Method, pattern, ww.Status())
			m.ObserveHTTPDuration(r.Method, pattern, time.Since(start).Seconds())
		})
	}
}
