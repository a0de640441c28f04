package pseudonym

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

var pseudonymFormat = regexp.MustCompile(`^[a-z]+_[0-9a-f]{10}$`)

func TestGenerateFormat(t *testing.T) {
	prefixes := []string{PrefixUser, PrefixEmail, PrefixOrg, PrefixInvitation, PrefixAttachment}

	for _, prefix := range prefixes {
		t.Run(prefix, func(t *testing.T) {
			got, err := Generate(context.Background(), ScopeFunc(func(ctx context.Context, v string) (bool, error) {
				return false, nil
			}), prefix)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !pseudonymFormat.MatchString(got) {
				t.Errorf("pseudonym %q does not match <prefix>_<10 hex chars>", got)
			}
			if got[:len(prefix)] != prefix {
				t.Errorf("pseudonym %q missing prefix %q", got, prefix)
			}
		})
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	calls := 0
	scope := ScopeFunc(func(ctx context.Context, v string) (bool, error) {
		calls++
		// First two candidates collide, third is free.
		return calls < 3, nil
	})

	got, err := Generate(context.Background(), scope, PrefixUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 uniqueness checks, got %d", calls)
	}
	if !pseudonymFormat.MatchString(got) {
		t.Errorf("pseudonym %q has wrong format", got)
	}
}

func TestGeneratePropagatesStorageError(t *testing.T) {
	storeErr := errors.New("connection refused")
	scope := ScopeFunc(func(ctx context.Context, v string) (bool, error) {
		return false, storeErr
	})

	_, err := Generate(context.Background(), scope, PrefixOrg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped storage error, got %v", err)
	}
}

func TestGenerateDistinctValues(t *testing.T) {
	seen := make(map[string]bool)
	scope := ScopeFunc(func(ctx context.Context, v string) (bool, error) {
		return seen[v], nil
	})

	for i := 0; i < 200; i++ {
		got, err := Generate(context.Background(), scope, PrefixAttachment)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[got] {
			t.Fatalf("duplicate pseudonym %q", got)
		}
		seen[got] = true
	}
}

func TestEphemeral(t *testing.T) {
	a, err := Ephemeral(PrefixTodo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Ephemeral(PrefixTodo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pseudonymFormat.MatchString(a) {
		t.Errorf("ephemeral pseudonym %q has wrong format", a)
	}
	if a == b {
		t.Errorf("two ephemeral pseudonyms are identical: %q", a)
	}
}
