package invite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskveil/taskveil/internal/crypto"
)

// Store provides database operations for invitations. Real tokens are
// stored sealed (when a cipher is configured) alongside a SHA-256 hash used
// for redemption lookups; the plaintext never touches a storage column.
type Store struct {
	pool   *pgxpool.Pool
	cipher *crypto.Cipher
}

// NewStore creates a new invitation store. cipher may be nil, in which case
// tokens are stored plain.
func NewStore(pool *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{pool: pool, cipher: cipher}
}

// NewToken generates a fresh invitation credential: 32 hex characters from a
// cryptographically strong source.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create inserts a new invitation. The pseudo_token column carries a UNIQUE
// constraint as the backstop for the pseudonym generator's check-then-insert.
func (s *Store) Create(ctx context.Context, in CreateInvitationInput) (*Invitation, error) {
	sealed, err := s.cipher.Seal(in.Token)
	if err != nil {
		return nil, fmt.Errorf("sealing invitation token: %w", err)
	}

	inv := &Invitation{}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO invitations (org_id, email, role, token_sealed, token_hash, pseudo_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, org_id, email, role, pseudo_token, used, accepted_at, created_at`,
		in.OrgID, in.Email, in.Role, sealed, hashToken(in.Token), in.PseudoToken,
	).Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.PseudoToken,
		&inv.Used, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}
	inv.Token = in.Token
	return inv, nil
}

// GetByToken retrieves an invitation by its plaintext token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	inv := &Invitation{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, email, role, pseudo_token, used, accepted_at, created_at
		 FROM invitations WHERE token_hash = $1`, hashToken(token),
	).Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.PseudoToken,
		&inv.Used, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting invitation by token: %w", err)
	}
	inv.Token = token
	return inv, nil
}

// ListByOrg returns every invitation for the organization, newest first,
// with real tokens unsealed.
func (s *Store) ListByOrg(ctx context.Context, orgID string) ([]*Invitation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, email, role, token_sealed, pseudo_token, used, accepted_at, created_at
		 FROM invitations WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	var invs []*Invitation
	for rows.Next() {
		inv := &Invitation{}
		var sealed string
		if err := rows.Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &sealed,
			&inv.PseudoToken, &inv.Used, &inv.AcceptedAt, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning invitation row: %w", err)
		}
		token, err := s.cipher.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("unsealing invitation token: %w", err)
		}
		inv.Token = token
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// Redeem marks an unredeemed invitation as used and stamps accepted_at.
// Returns an error if the invitation is already used or does not exist.
func (s *Store) Redeem(ctx context.Context, id string) (*Invitation, error) {
	inv := &Invitation{}
	err := s.pool.QueryRow(ctx,
		`UPDATE invitations SET used = true, accepted_at = now()
		 WHERE id = $1 AND used = false
		 RETURNING id, org_id, email, role, pseudo_token, used, accepted_at, created_at`,
		id,
	).Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.PseudoToken,
		&inv.Used, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("redeeming invitation: %w", err)
	}
	return inv, nil
}

// PseudoTokenExists reports whether any invitation already uses the given
// pseudo token. It satisfies the pseudonym generator's scope check.
func (s *Store) PseudoTokenExists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invitations WHERE pseudo_token = $1)`, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invitation pseudo token: %w", err)
	}
	return exists, nil
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
