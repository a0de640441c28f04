package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// RateResolver resolves configured rate overrides for an organization and a
// user. Implemented by OverrideStore; faked in tests.
type RateResolver interface {
	Resolve(ctx context.Context, orgID, userID string) (orgRate, userRate int, err error)
}

// ChatLimiter checks chat-turn rate limits across the user and organization
// scopes. The user bucket always applies (default rate when no override);
// the org bucket applies only when an org-wide override is configured.
type ChatLimiter struct {
	resolver RateResolver
	limiter  *Limiter
}

// NewChatLimiter creates a ChatLimiter using the given resolver and
// in-memory limiter.
func NewChatLimiter(resolver RateResolver, limiter *Limiter) *ChatLimiter {
	return &ChatLimiter{resolver: resolver, limiter: limiter}
}

// Check consumes one token from every applicable bucket. All buckets must
// allow for the turn to proceed. Returns the tightest limit info for
// response headers.
func (cl *ChatLimiter) Check(ctx context.Context, orgID, userID string) (allowed bool, limit, remaining int, resetAt time.Time, err error) {
	orgRate, userRate, err := cl.resolver.Resolve(ctx, orgID, userID)
	if err != nil {
		return false, 0, 0, time.Time{}, err
	}

	type scopeCheck struct {
		key  string
		rate int
	}

	checks := []scopeCheck{
		{key: fmt.Sprintf("user:%s", userID), rate: userRate},
	}
	if orgRate > 0 {
		checks = append(checks, scopeCheck{
			key:  fmt.Sprintf("org:%s", orgID),
			rate: orgRate,
		})
	}

	// All buckets must allow. Track the tightest for headers.
	allowed = true
	for _, c := range checks {
		if !cl.limiter.Allow(c.key, c.rate) {
			allowed = false
		}
		l, r, rst := cl.limiter.Status(c.key, c.rate)
		if limit == 0 || l < limit {
			limit = l
			remaining = r
			resetAt = rst
		}
	}

	return allowed, limit, remaining, resetAt, nil
}
