package task

import "time"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Attachment pairs a real file reference with its stored pseudonym. The two
// are generated together whenever the attachment list changes, so the pair
// is parallel by construction.
type Attachment struct {
	URL      string `json:"url"`
	PseudoID string `json:"pseudo_id"`
}

// TodoItem is one checklist entry on a task. Todo items carry no stored
// pseudonym; the snapshot assembler mints an ephemeral one per build.
type TodoItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is a unit of work within an organization.
type Task struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"org_id"`
	CreatorID   string       `json:"creator_id"`
	AssigneeID  *string      `json:"assignee_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Todos       []TodoItem   `json:"todos"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateTaskInput holds the fields required to create a task. AttachmentURLs
// are the real references; the service pairs each with a generated pseudonym.
type CreateTaskInput struct {
	OrgID          string     `json:"-"`
	CreatorID      string     `json:"-"`
	AssigneeID     *string    `json:"assignee_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	AttachmentURLs []string   `json:"attachments"`
	Todos          []TodoItem `json:"todos"`
}

// UpdateTaskInput holds optional fields for a partial task update. A non-nil
// AttachmentURLs replaces the whole attachment list; pseudonyms for URLs that
// survive the change are kept, new URLs get fresh ones.
type UpdateTaskInput struct {
	AssigneeID     *string     `json:"assignee_id,omitempty"`
	Title          *string     `json:"title,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Status         *string     `json:"status,omitempty"`
	Priority       *string     `json:"priority,omitempty"`
	DueDate        *time.Time  `json:"due_date,omitempty"`
	AttachmentURLs *[]string   `json:"attachments,omitempty"`
	Todos          *[]TodoItem `json:"todos,omitempty"`
}
