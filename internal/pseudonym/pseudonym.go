// Package pseudonym generates the opaque stand-in identifiers that replace
// real organization, user, invitation and attachment values before any data
// is shown to the assistant's language model. A pseudonym is a semantic
// prefix joined to a short random hex suffix, e.g. "user_7f3a1b2c9d".
package pseudonym

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Semantic prefixes for each pseudonymized field.
const (
	PrefixUser       = "user"
	PrefixEmail      = "email"
	PrefixOrg        = "org"
	PrefixInvitation = "inv"
	PrefixAttachment = "att"
	PrefixTodo       = "todo"
)

// suffixBytes yields a 10-character lowercase hex suffix.
const suffixBytes = 5

// Scope answers whether a candidate pseudonym is already taken within one
// record population (all user pseudo-names, all org pseudo-names, ...).
// Implementations are backed by the store that owns the field and must be
// paired with a uniqueness constraint at the storage layer, since the check
// and the insert are not atomic.
type Scope interface {
	Exists(ctx context.Context, value string) (bool, error)
}

// ScopeFunc adapts a function to the Scope interface.
type ScopeFunc func(ctx context.Context, value string) (bool, error)

// Exists calls f.
func (f ScopeFunc) Exists(ctx context.Context, value string) (bool, error) {
	return f(ctx, value)
}

// Generate returns a pseudonym of the form "<prefix>_<suffix>" whose value
// is unique within scope at the instant of generation. It retries on
// collision; with a 40-bit suffix space collisions are vanishingly rare, so
// the loop is expected to run once. Storage errors from the scope check are
// fatal and propagate to the caller.
func Generate(ctx context.Context, scope Scope, prefix string) (string, error) {
	for {
		candidate, err := Ephemeral(prefix)
		if err != nil {
			return "", err
		}
		taken, err := scope.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking pseudonym uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// Ephemeral returns a pseudonym without any uniqueness check. Used for
// identifiers that live only for a single context snapshot (todo items) and
// as the candidate step of Generate.
func Ephemeral(prefix string) (string, error) {
	b := make([]byte, suffixBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating pseudonym suffix: %w", err)
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}
