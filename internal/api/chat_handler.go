package api

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/taskveil/taskveil/internal/assistant"
	"github.com/taskveil/taskveil/internal/audit"
	"github.com/taskveil/taskveil/internal/auth"
	"github.com/taskveil/taskveil/internal/metrics"
)

// opaqueChatError is the only failure text the chat endpoint ever returns.
// Which check failed, which keyword tripped, or what the provider said must
// never be inferable from the response.
const opaqueChatError = "Failed to generate response"

type chatHandler struct {
	gateway   *assistant.Gateway
	collector *audit.Collector
	metrics   *metrics.Metrics
	timeout   time.Duration
}

func newChatHandler(gateway *assistant.Gateway, collector *audit.Collector, m *metrics.Metrics, timeout time.Duration) *chatHandler {
	return &chatHandler{gateway: gateway, collector: collector, metrics: m, timeout: timeout}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat runs one assistant turn for the authenticated user.
func (h *chatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	authed := auth.UserFromContext(r.Context())
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	if h.metrics != nil {
		h.metrics.ActiveChatTurns.Inc()
		defer h.metrics.ActiveChatTurns.Dec()
	}

	result, err := h.gateway.HandleChatTurn(ctx, authed.ID, authed.OrgID, req.Message)
	latency := time.Since(start)

	outcome := outcomeFor(err)
	h.record(authed.OrgID, authed.ID, outcome, latency, req.Message, result)

	if err != nil {
		writeError(w, statusFor(err), "chat_failed", opaqueChatError)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: result.Response})
}

// record emits the audit row and metrics for one turn.
func (h *chatHandler) record(orgID, userID, outcome string, latency time.Duration, message string, result assistant.Result) {
	if h.metrics != nil {
		h.metrics.IncChatTurn(outcome)
		h.metrics.ChatTurnDuration.Observe(latency.Seconds())
		if outcome == audit.OutcomeOK {
			if result.CacheHit {
				h.metrics.IncCacheHit()
			} else {
				h.metrics.IncCacheMiss()
			}
		}
		if outcome == audit.OutcomeRejected {
			h.metrics.IncPolicyRejection("input")
		}
	}
	if h.collector != nil {
		h.collector.Record(audit.Turn{
			OrgID:         orgID,
			UserID:        userID,
			Timestamp:     time.Now(),
			Outcome:       outcome,
			LatencyMs:     latency.Milliseconds(),
			MessageChars:  utf8.RuneCountInString(message),
			ResponseChars: utf8.RuneCountInString(result.Response),
			CacheHit:      result.CacheHit,
		})
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.Is(err, assistant.ErrInvalidInput):
		return audit.OutcomeRejected
	case errors.Is(err, assistant.ErrNotFound):
		return audit.OutcomeNotFound
	case errors.Is(err, assistant.ErrProvider):
		return audit.OutcomeProvider
	default:
		return audit.OutcomeStorage
	}
}

// statusFor maps error kinds to status codes. The body stays opaque either
// way; the status distinguishes only "your message was refused" from "we
// could not answer".
func statusFor(err error) int {
	if errors.Is(err, assistant.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
