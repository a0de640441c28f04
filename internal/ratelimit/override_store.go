package ratelimit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Override represents an org- or user-scoped chat rate limit override.
type Override struct {
	ID      string `json:"id"`
	Scope   string `json:"scope"` // "org" or "user"
	ScopeID string `json:"scope_id"`
	Rate    int    `json:"rate"`
}

// OverrideStore provides CRUD for chat_rate_limits and resolution of
// effective rates.
type OverrideStore struct {
	pool *pgxpool.Pool
}

// NewOverrideStore creates a new OverrideStore.
func NewOverrideStore(pool *pgxpool.Pool) *OverrideStore {
	return &OverrideStore{pool: pool}
}

// List returns all chat rate limit overrides.
func (s *OverrideStore) List(ctx context.Context) ([]Override, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scope, scope_id, rate FROM chat_rate_limits ORDER BY scope, scope_id`)
	if err != nil {
		return nil, fmt.Errorf("listing chat rate limits: %w", err)
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.Scope, &o.ScopeID, &o.Rate); err != nil {
			return nil, fmt.Errorf("scanning chat rate limit: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// Set upserts a rate limit override for a scope+scopeID combination.
func (s *OverrideStore) Set(ctx context.Context, scope, scopeID string, rate int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_rate_limits (scope, scope_id, rate)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (scope, scope_id) DO UPDATE SET rate = EXCLUDED.rate`,
		scope, scopeID, rate)
	if err != nil {
		return fmt.Errorf("upserting chat rate limit: %w", err)
	}
	return nil
}

// Delete removes an override.
func (s *OverrideStore) Delete(ctx context.Context, scope, scopeID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM chat_rate_limits WHERE scope = $1 AND scope_id = $2`, scope, scopeID)
	if err != nil {
		return fmt.Errorf("deleting chat rate limit: %w", err)
	}
	return nil
}

// Resolve returns the configured rates for the organization and user scopes.
// A zero rate means no override is configured for that scope.
func (s *OverrideStore) Resolve(ctx context.Context, orgID, userID string) (orgRate, userRate int, err error) {
	rows, err := s.pool.Query(ctx,
		`SELECT scope, rate FROM chat_rate_limits
		 WHERE (scope = 'org' AND scope_id = $1) OR (scope = 'user' AND scope_id = $2)`,
		orgID, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("resolving chat rate limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope string
		var rate int
		if err := rows.Scan(&scope, &rate); err != nil {
			return 0, 0, fmt.Errorf("scanning chat rate limit: %w", err)
		}
		switch scope {
		case "org":
			orgRate = rate
		case "user":
			userRate = rate
		}
	}
	return orgRate, userRate, rows.Err()
}
