package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, org_id, creator_id, assignee_id, title, description,
	status, priority, due_date, attachments, todos, created_at, updated_at`

// Store provides database operations for tasks. Attachments and todos are
// JSONB columns.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new task store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanTask(scan func(dest ...any) error) (*Task, error) {
	t := &Task{}
	var attachmentsJSON, todosJSON []byte
	err := scan(&t.ID, &t.OrgID, &t.CreatorID, &t.AssigneeID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.DueDate, &attachmentsJSON, &todosJSON,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &t.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshaling attachments: %w", err)
		}
	}
	if t.Attachments == nil {
		t.Attachments = []Attachment{}
	}
	if len(todosJSON) > 0 {
		if err := json.Unmarshal(todosJSON, &t.Todos); err != nil {
			return nil, fmt.Errorf("unmarshaling todos: %w", err)
		}
	}
	if t.Todos == nil {
		t.Todos = []TodoItem{}
	}
	return t, nil
}

func marshalAttachments(attachments []Attachment) ([]byte, error) {
	if attachments == nil {
		attachments = []Attachment{}
	}
	return json.Marshal(attachments)
}

func marshalTodos(todos []TodoItem) ([]byte, error) {
	if todos == nil {
		todos = []TodoItem{}
	}
	return json.Marshal(todos)
}

// insertRow holds the resolved values the Service passes to Create.
type insertRow struct {
	OrgID       string
	CreatorID   string
	AssigneeID  *string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	Attachments []Attachment
	Todos       []TodoItem
}

// Create inserts a new task.
func (s *Store) Create(ctx context.Context, row insertRow) (*Task, error) {
	attachmentsJSON, err := marshalAttachments(row.Attachments)
	if err != nil {
		return nil, fmt.Errorf("marshaling attachments: %w", err)
	}
	todosJSON, err := marshalTodos(row.Todos)
	if err != nil {
		return nil, fmt.Errorf("marshaling todos: %w", err)
	}

	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO tasks (org_id, creator_id, assignee_id, title, description,
			                    status, priority, due_date, attachments, todos)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING `+taskColumns,
			row.OrgID, row.CreatorID, row.AssigneeID, row.Title, row.Description,
			row.Status, row.Priority, row.DueDate, attachmentsJSON, todosJSON,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// GetByID retrieves a task by primary key, scoped to the organization.
func (s *Store) GetByID(ctx context.Context, orgID, id string) (*Task, error) {
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND org_id = $2`, id, orgID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting task by id: %w", err)
	}
	return t, nil
}

// ListByOrg returns all tasks for the organization, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID string) ([]*Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// updateRow holds the resolved values the Service passes to Update.
// Attachments is non-nil only when the attachment list changed.
type updateRow struct {
	AssigneeID  *string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	Attachments *[]Attachment
	Todos       *[]TodoItem
}

// Update performs a partial update on the task with the given id.
func (s *Store) Update(ctx context.Context, orgID, id string, row updateRow) (*Task, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if row.AssigneeID != nil {
		setClauses = append(setClauses, fmt.Sprintf("assignee_id = $%d", argIdx))
		args = append(args, *row.AssigneeID)
		argIdx++
	}
	if row.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argIdx))
		args = append(args, *row.Title)
		argIdx++
	}
	if row.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *row.Description)
		argIdx++
	}
	if row.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *row.Status)
		argIdx++
	}
	if row.Priority != nil {
		setClauses = append(setClauses, fmt.Sprintf("priority = $%d", argIdx))
		args = append(args, *row.Priority)
		argIdx++
	}
	if row.DueDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("due_date = $%d", argIdx))
		args = append(args, *row.DueDate)
		argIdx++
	}
	if row.Attachments != nil {
		attachmentsJSON, err := marshalAttachments(*row.Attachments)
		if err != nil {
			return nil, fmt.Errorf("marshaling attachments: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("attachments = $%d", argIdx))
		args = append(args, attachmentsJSON)
		argIdx++
	}
	if row.Todos != nil {
		todosJSON, err := marshalTodos(*row.Todos)
		if err != nil {
			return nil, fmt.Errorf("marshaling todos: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("todos = $%d", argIdx))
		args = append(args, todosJSON)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, orgID, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	args = append(args, id, orgID)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d AND org_id = $%d RETURNING `+taskColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1,
	)

	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return t, nil
}

// Delete removes a task by id, scoped to the organization.
func (s *Store) Delete(ctx context.Context, orgID, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// PseudoAttachmentExists reports whether any task already carries the given
// attachment pseudonym. It satisfies the pseudonym generator's scope check.
func (s *Store) PseudoAttachmentExists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM tasks, jsonb_array_elements(attachments) a
		   WHERE a->>'pseudo_id' = $1
		 )`, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking attachment pseudonym: %w", err)
	}
	return exists, nil
}
