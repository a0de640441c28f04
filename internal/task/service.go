package task

import (
	"context"
	"errors"
	"strings"

	"github.com/taskveil/taskveil/internal/pseudonym"
)

// Validation errors returned by the Service layer.
var (
	ErrTitleRequired   = errors.New("title is required")
	ErrStatusInvalid   = errors.New("status must be one of: todo, in_progress, done")
	ErrPriorityInvalid = errors.New("priority must be one of: low, medium, high")
)

var validStatuses = map[string]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusDone:       true,
}

var validPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// Service provides validated business logic over the task Store. It owns the
// pairing of attachment URLs with their stored pseudonyms: the two lists are
// built together, so they can never drift apart in length or order.
type Service struct {
	store    *Store
	attScope pseudonym.Scope
}

// NewService creates a new Service wrapping the given Store. attScope is the
// uniqueness scope for attachment pseudonyms (normally the store itself).
func NewService(store *Store, attScope pseudonym.Scope) *Service {
	return &Service{store: store, attScope: attScope}
}

// Create validates the input, generates attachment pseudonyms, and inserts
// the task.
func (s *Service) Create(ctx context.Context, in CreateTaskInput) (*Task, error) {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	attachments, err := pairAttachments(ctx, s.attScope, nil, in.AttachmentURLs)
	if err != nil {
		return nil, err
	}

	return s.store.Create(ctx, insertRow{
		OrgID:       in.OrgID,
		CreatorID:   in.CreatorID,
		AssigneeID:  in.AssigneeID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Attachments: attachments,
		Todos:       in.Todos,
	})
}

// GetByID retrieves a task by its ID within the organization.
func (s *Service) GetByID(ctx context.Context, orgID, id string) (*Task, error) {
	return s.store.GetByID(ctx, orgID, id)
}

// ListByOrg returns all tasks for the organization.
func (s *Service) ListByOrg(ctx context.Context, orgID string) ([]*Task, error) {
	return s.store.ListByOrg(ctx, orgID)
}

// Update validates the input and applies the update. When the attachment
// list changes, URLs that survive keep their pseudonyms and new URLs get
// freshly generated ones.
func (s *Service) Update(ctx context.Context, orgID, id string, in UpdateTaskInput) (*Task, error) {
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	row := updateRow{
		AssigneeID:  in.AssigneeID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Todos:       in.Todos,
	}

	if in.AttachmentURLs != nil {
		existing, err := s.store.GetByID(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		attachments, err := pairAttachments(ctx, s.attScope, existing.Attachments, *in.AttachmentURLs)
		if err != nil {
			return nil, err
		}
		row.Attachments = &attachments
	}

	return s.store.Update(ctx, orgID, id, row)
}

// Delete removes a task by its ID within the organization.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.store.Delete(ctx, orgID, id)
}

// pairAttachments builds the attachment list for urls, reusing pseudonyms
// from existing for URLs that are still present and generating new ones for
// the rest. The result is positionally parallel to urls.
func pairAttachments(ctx context.Context, scope pseudonym.Scope, existing []Attachment, urls []string) ([]Attachment, error) {
	known := make(map[string]string, len(existing))
	for _, a := range existing {
		known[a.URL] = a.PseudoID
	}

	attachments := make([]Attachment, 0, len(urls))
	for _, url := range urls {
		pseudoID, ok := known[url]
		if !ok {
			var err error
			pseudoID, err = pseudonym.Generate(ctx, scope, pseudonym.PrefixAttachment)
			if err != nil {
				return nil, err
			}
		}
		attachments = append(attachments, Attachment{URL: url, PseudoID: pseudoID})
	}
	return attachments, nil
}

func validateCreate(in CreateTaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if !validStatuses[in.Status] {
		return ErrStatusInvalid
	}
	if !validPriorities[in.Priority] {
		return ErrPriorityInvalid
	}
	return nil
}

func validateUpdate(in UpdateTaskInput) error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return ErrTitleRequired
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		return ErrStatusInvalid
	}
	if in.Priority != nil && !validPriorities[*in.Priority] {
		return ErrPriorityInvalid
	}
	return nil
}
