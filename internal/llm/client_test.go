package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", "test-model", 256, srv.Client())
	got, err := c.Complete(context.Background(), Request{
		System:      "You are helpful.",
		Context:     "Org: org_abc.",
		UserMessage: "hi",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello there" {
		t.Errorf("response = %q, want %q", got, "hello there")
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody.Model != "test-model" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(gotBody.Messages))
	}
	if !strings.Contains(gotBody.Messages[0].Content, "Org: org_abc.") {
		t.Errorf("system message missing context: %q", gotBody.Messages[0].Content)
	}
	if gotBody.Messages[1].Role != "user" || gotBody.Messages[1].Content != "hi" {
		t.Errorf("user message = %+v", gotBody.Messages[1])
	}
}

func TestCompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 0, srv.Client())
	_, err := c.Complete(context.Background(), Request{UserMessage: "hi"})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %v", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 0, srv.Client())
	_, err := c.Complete(context.Background(), Request{UserMessage: "hi"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "", "test-model", 0, srv.Client())
	_, err := c.Complete(ctx, Request{UserMessage: "hi"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
