package audit

import "time"

// Outcomes recorded for a chat turn.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeProvider = "provider_error"
	OutcomeStorage  = "storage_error"
)

// Turn is the audit record for one assistant chat turn. It carries sizes and
// outcomes only, never message content, so the audit log cannot become a
// side channel for the data the gateway protects.
type Turn struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	Outcome       string    `json:"outcome"`
	LatencyMs     int64     `json:"latency_ms"`
	MessageChars  int       `json:"message_chars"`
	ResponseChars int       `json:"response_chars"`
	CacheHit      bool      `json:"cache_hit"`
}

// Summary holds aggregate figures for a set of turns.
type Summary struct {
	TotalTurns   int64   `json:"total_turns"`
	OKCount      int64   `json:"ok_count"`
	FailedCount  int64   `json:"failed_count"`
	CacheHits    int64   `json:"cache_hits"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Query defines filters for summarizing turns.
type Query struct {
	OrgID  string    `json:"org_id,omitempty"`
	UserID string    `json:"user_id,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}
