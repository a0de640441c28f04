package task

import (
	"context"
	"testing"
)

type fakeScope struct {
	taken map[string]bool
}

func (f *fakeScope) Exists(ctx context.Context, value string) (bool, error) {
	return f.taken[value], nil
}

func TestPairAttachmentsParallel(t *testing.T) {
	urls := []string{
		"https://files.example.com/a.pdf",
		"https://files.example.com/b.png",
		"https://files.example.com/c.txt",
	}

	attachments, err := pairAttachments(context.Background(), &fakeScope{}, nil, urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(attachments) != len(urls) {
		t.Fatalf("expected %d attachments, got %d", len(urls), len(attachments))
	}
	seen := make(map[string]bool)
	for i, a := range attachments {
		if a.URL != urls[i] {
			t.Errorf("attachment %d: url %q, want %q", i, a.URL, urls[i])
		}
		if a.PseudoID == "" {
			t.Errorf("attachment %d: missing pseudonym", i)
		}
		if seen[a.PseudoID] {
			t.Errorf("attachment %d: duplicate pseudonym %q", i, a.PseudoID)
		}
		seen[a.PseudoID] = true
	}
}

func TestPairAttachmentsReusesSurvivors(t *testing.T) {
	existing := []Attachment{
		{URL: "https://files.example.com/a.pdf", PseudoID: "att_0000000001"},
		{URL: "https://files.example.com/b.png", PseudoID: "att_0000000002"},
	}
	// b.png survives, a.pdf is dropped, d.csv is new.
	urls := []string{"https://files.example.com/b.png", "https://files.example.com/d.csv"}

	attachments, err := pairAttachments(context.Background(), &fakeScope{}, existing, urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}
	if attachments[0].PseudoID != "att_0000000002" {
		t.Errorf("surviving URL should keep its pseudonym, got %q", attachments[0].PseudoID)
	}
	if attachments[1].PseudoID == "" || attachments[1].PseudoID == "att_0000000001" {
		t.Errorf("new URL should get a fresh pseudonym, got %q", attachments[1].PseudoID)
	}
}

func TestPairAttachmentsEmpty(t *testing.T) {
	attachments, err := pairAttachments(context.Background(), &fakeScope{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attachments) != 0 {
		t.Errorf("expected no attachments, got %d", len(attachments))
	}
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateTaskInput
		wantErr error
	}{
		{
			name: "valid",
			in:   CreateTaskInput{Title: "Ship release", Status: StatusTodo, Priority: PriorityHigh},
		},
		{
			name:    "missing title",
			in:      CreateTaskInput{Title: "  ", Status: StatusTodo, Priority: PriorityLow},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "bad status",
			in:      CreateTaskInput{Title: "x", Status: "blocked", Priority: PriorityLow},
			wantErr: ErrStatusInvalid,
		},
		{
			name:    "bad priority",
			in:      CreateTaskInput{Title: "x", Status: StatusDone, Priority: "urgent"},
			wantErr: ErrPriorityInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreate(tt.in)
			if err != tt.wantErr {
				t.Errorf("validateCreate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	empty := " "
	bad := "someday"
	good := StatusInProgress

	if err := validateUpdate(UpdateTaskInput{Title: &empty}); err != ErrTitleRequired {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
	if err := validateUpdate(UpdateTaskInput{Status: &bad}); err != ErrStatusInvalid {
		t.Errorf("expected ErrStatusInvalid, got %v", err)
	}
	if err := validateUpdate(UpdateTaskInput{Status: &good}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateUpdate(UpdateTaskInput{}); err != nil {
		t.Errorf("empty update should be valid, got %v", err)
	}
}
