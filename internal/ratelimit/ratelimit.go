// Package ratelimit bounds how often each user may invoke the assistant.
// Every chat turn costs one token; buckets are keyed per user with an
// optional per-organization override resolved from the database.
package ratelimit

import (
	"sync"
	"time"
)

// bucket tracks the token state for a single key. Tokens are fractional so
// refills accumulate smoothly between requests.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	rate       int
}

// refill tops the bucket up for the time elapsed since the last refill,
// capped at the bucket's rate. Tokens accrue at rate/window per second.
func (b *bucket) refill(now time.Time, window time.Duration) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * float64(b.rate) / window.Seconds()
	if b.tokens > float64(b.rate) {
		b.tokens = float64(b.rate)
	}
	b.lastRefill = now
}

// Limiter implements a token-bucket rate limiter keyed by arbitrary string
// identifiers (e.g. user ID, organization ID).
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	defaultRate int
	window      time.Duration
	now         func() time.Time // injectable clock for testing
}

// New creates a Limiter that allows defaultRate requests per window.
func New(defaultRate int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:     make(map[string]*bucket),
		defaultRate: defaultRate,
		window:      window,
		now:         time.Now,
	}
}

// bucketFor returns the refilled bucket for key at the given rate, creating
// it full if absent. A positive customRate overrides the default. Must be
// called with l.mu held.
func (l *Limiter) bucketFor(key string, customRate int) *bucket {
	rate := l.defaultRate
	if customRate > 0 {
		rate = customRate
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rate), lastRefill: l.now(), rate: rate}
		l.buckets[key] = b
	}
	// Pick up edits to an override mid-flight.
	b.rate = rate
	b.refill(l.now(), l.window)
	return b
}

// Allow checks whether a request identified by key is permitted. If customRate
// is positive it overrides the default rate for this key. Returns true and
// consumes one token when allowed, false when the limit is exceeded.
func (l *Limiter) Allow(key string, customRate int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucketFor(key, customRate)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Status returns the current rate-limit state for key. limit is the maximum
// number of tokens, remaining is the number of tokens left (floored to int),
// and resetAt is the time at which the bucket will be fully replenished.
func (l *Limiter) Status(key string, customRate int) (limit int, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucketFor(key, customRate)

	limit = b.rate
	remaining = int(b.tokens)
	if remaining < 0 {
		remaining = 0
	}

	deficit := float64(b.rate) - b.tokens
	if deficit <= 0 {
		return limit, remaining, l.now()
	}
	secondsPerToken := l.window.Seconds() / float64(b.rate)
	resetAt = l.now().Add(time.Duration(deficit * secondsPerToken * float64(time.Second)))
	return limit, remaining, resetAt
}
