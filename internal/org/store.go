package org

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for organizations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new organization store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new organization. The pseudo_name column carries a UNIQUE
// constraint as the backstop for the pseudonym generator's check-then-insert.
func (s *Store) Create(ctx context.Context, in CreateOrganizationInput) (*Organization, error) {
	o := &Organization{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, pseudo_name)
		 VALUES ($1, $2)
		 RETURNING id, name, pseudo_name, created_at`,
		in.Name, in.PseudoName,
	).Scan(&o.ID, &o.Name, &o.PseudoName, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}
	return o, nil
}

// GetByID retrieves an organization by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Organization, error) {
	o := &Organization{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, pseudo_name, created_at
		 FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.PseudoName, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting organization by id: %w", err)
	}
	return o, nil
}

// PseudoNameExists reports whether any organization already uses the given
// pseudo name. It satisfies the pseudonym generator's scope check.
func (s *Store) PseudoNameExists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE pseudo_name = $1)`, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking organization pseudo name: %w", err)
	}
	return exists, nil
}

// Delete removes an organization by id. Member, task and invitation rows
// cascade at the schema level.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting organization: %w", err)
	}
	return nil
}
