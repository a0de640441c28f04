package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskveil/taskveil/internal/llm"
)

// Gateway runs one chat turn end to end: validate, fetch-or-build the
// snapshot, substitute, call the model, validate and substitute back. It is
// the only entry point; callers own authentication, throttling and timeouts.
type Gateway struct {
	assembler *Assembler
	cache     *Cache
	policy    *Policy
	completer llm.Completer
	logger    *slog.Logger
}

// Result is the outcome of a successful chat turn.
type Result struct {
	Response string
	CacheHit bool
}

// NewGateway wires a Gateway from its collaborators.
func NewGateway(assembler *Assembler, cache *Cache, policy *Policy, completer llm.Completer, logger *slog.Logger) *Gateway {
	return &Gateway{
		assembler: assembler,
		cache:     cache,
		policy:    policy,
		completer: completer,
		logger:    logger,
	}
}

// HandleChatTurn processes one message for one authenticated user. Every
// failure is returned as one of the package's error kinds; the HTTP layer
// collapses them all into a single opaque message so nothing about the
// substitution scheme can be inferred from error text. There are no retries
// at this layer.
func (g *Gateway) HandleChatTurn(ctx context.Context, userID, orgID, rawMessage string) (Result, error) {
	message, err := g.policy.ValidateInput(rawMessage)
	if err != nil {
		g.logger.Warn("chat input rejected", "org_id", orgID, "user_id", userID, "error", err)
		return Result{}, err
	}

	snap, hit := g.cache.Get(orgID)
	if !hit {
		snap, err = g.assembler.Build(ctx, orgID)
		if err != nil {
			g.logger.Error("snapshot build failed", "org_id", orgID, "error", err)
			return Result{}, err
		}
		g.cache.Put(orgID, snap)
	}

	if IsGreeting(message) {
		greeting := fmt.Sprintf(
			"Hello! I'm %s's assistant. Ask me about your team's members, tasks or invitations.",
			snap.Org.PseudoName)
		return Result{Response: snap.ToReal(greeting), CacheHit: hit}, nil
	}

	secured := g.policy.SecureSnapshot(snap)
	answer, err := g.completer.Complete(ctx, llm.Request{
		System:      safetyDirective,
		Context:     secured.RenderContext(),
		UserMessage: snap.ToPseudonymous(message),
	})
	if err != nil {
		g.logger.Error("model call failed", "org_id", orgID, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	// A cancelled request returns whole or not at all; no partial state is
	// reverse-substituted after the deadline.
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	validated, err := g.policy.ValidateOutput(answer)
	if err != nil {
		g.logger.Warn("model answer rejected", "org_id", orgID, "error", err)
		return Result{}, err
	}

	return Result{Response: snap.ToReal(validated), CacheHit: hit}, nil
}
