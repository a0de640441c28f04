package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the chat-turn audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BatchInsert writes a slice of turns to the database in a single multi-row
// INSERT statement. It is a no-op when turns is empty.
func (s *Store) BatchInsert(ctx context.Context, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}

	const cols = 8
	args := make([]any, 0, len(turns)*cols)
	rows := make([]string, 0, len(turns))

	for i, tn := range turns {
		base := i * cols
		rows = append(rows, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			tn.OrgID,
			tn.UserID,
			tn.Timestamp,
			tn.Outcome,
			tn.LatencyMs,
			tn.MessageChars,
			tn.ResponseChars,
			tn.CacheHit,
		)
	}

	query := `INSERT INTO assistant_turns
		(org_id, user_id, timestamp, outcome, latency_ms,
		 message_chars, response_chars, cache_hit)
		VALUES ` + strings.Join(rows, ", ")

	_, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("batch inserting assistant turns: %w", err)
	}
	return nil
}

// GetSummary returns aggregate turn metrics matching the query filters.
func (s *Store) GetSummary(ctx context.Context, q Query) (*Summary, error) {
	where, args := buildWhereClause(q)

	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome <> 'ok' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(latency_ms), 0)
	FROM assistant_turns` + where

	var summary Summary
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&summary.TotalTurns,
		&summary.OKCount,
		&summary.FailedCount,
		&summary.CacheHits,
		&summary.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turn summary: %w", err)
	}
	return &summary, nil
}

// GetOutcomeCounts returns the total number of turns per outcome.
func (s *Store) GetOutcomeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM assistant_turns GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("querying outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scanning outcome count: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcome counts: %w", err)
	}
	return counts, nil
}

// buildWhereClause assembles the WHERE clause for the query filters.
func buildWhereClause(q Query) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OrgID != "" {
		conds = append(conds, "org_id = "+arg(q.OrgID))
	}
	if q.UserID != "" {
		conds = append(conds, "user_id = "+arg(q.UserID))
	}
	if !q.From.IsZero() {
		conds = append(conds, "timestamp >= "+arg(q.From))
	}
	if !q.To.IsZero() {
		conds = append(conds, "timestamp <= "+arg(q.To))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
