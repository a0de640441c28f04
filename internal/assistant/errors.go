package assistant

import "errors"

// Error kinds for a chat turn. The HTTP layer surfaces every one of them as
// the same opaque failure message; the distinctions exist for logging, audit
// outcomes and status codes only.
var (
	// ErrInvalidInput means the message or the model's answer failed the
	// security policy's sanitization or pattern checks.
	ErrInvalidInput = errors.New("message failed policy checks")

	// ErrNotFound means the organization or its admin could not be resolved,
	// so no context snapshot can be built.
	ErrNotFound = errors.New("organization context not found")

	// ErrProvider means the model call failed, timed out, or the request was
	// cancelled while waiting on it.
	ErrProvider = errors.New("model provider failed")

	// ErrStorage means the backing store was unavailable during snapshot
	// assembly.
	ErrStorage = errors.New("storage unavailable")
)
