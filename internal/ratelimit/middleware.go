package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/taskveil/taskveil/internal/auth"
)

// Middleware returns an HTTP middleware that enforces chat rate limits using
// the provided ChatLimiter. It expects an authenticated user in the request
// context (set by auth.MemberMiddleware).
//
// Rate-limit headers are always set on the response:
//
//	X-RateLimit-Limit     — maximum requests allowed in the window
//	X-RateLimit-Remaining — tokens remaining in the current window
//	X-RateLimit-Reset     — Unix timestamp when the bucket is fully replenished
//
// When the limit is exceeded the middleware responds with HTTP 429 and a JSON
// error body.
func Middleware(cl *ChatLimiter, onReject ...func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				// No user in context — skip rate limiting.
				next.ServeHTTP(w, r)
				return
			}

			allowed, limit, remaining, resetAt, err := cl.Check(r.Context(), user.OrgID, user.ID)
			if err != nil {
				// Resolution failure must not take the chat endpoint down;
				// fall back to letting the request through.
				next.ServeHTTP(w, r)
				return
			}

			if limit > 0 {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
			}

			if !allowed {
				for _, fn := range onReject {
					fn()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{
						"code":    "rate_limited",
						"message": "Rate limit exceeded. Try again later.",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
