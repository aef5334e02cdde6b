package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const todoColumns = "id, activity_group_id, title, is_active, priority, created_at, updated_at, deleted_at"

// TodoRepository persists todo items
type TodoRepository struct {
	db    *sql.DB
	newID func() (string, error)
	now   func() time.Time
}

// NewTodoRepository creates a new TodoRepository
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{
		db:    db,
		newID: newID,
		now:   time.Now,
	}
}

// Add inserts a new todo item with the default priority and active flag
func (r *TodoRepository) Add(ctx context.Context, payload NewTodo) (*Todo, error) {
	id, err := r.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	createdAt := r.now().UTC()

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO todos (id, activity_group_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, payload.ActivityGroupID, payload.Title, createdAt, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}

	return &Todo{
		ID:              id,
		ActivityGroupID: payload.ActivityGroupID,
		Title:           payload.Title,
		IsActive:        DefaultTodoIsActive,
		Priority:        DefaultTodoPriority,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// List returns at most ListLimit todo items, optionally filtered by
// activity group
func (r *TodoRepository) List(ctx context.Context, activityGroupID string) ([]Todo, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if activityGroupID != "" {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+todoColumns+" FROM todos WHERE activity_group_id = ? LIMIT ?",
			activityGroupID, ListLimit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+todoColumns+" FROM todos LIMIT ?", ListLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read todos: %w", err)
	}

	return todos, nil
}

// Get returns the todo item with the given ID
func (r *TodoRepository) Get(ctx context.Context, id string) (*Todo, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE id = ?", id)

	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "Todo", ID: id}
	}
	return t, err
}

// Delete removes the todo item with the given ID
func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return checkAffected(res, "Todo", id)
}

// Update applies the non-nil fields of patch and returns the updated row
func (r *TodoRepository) Update(ctx context.Context, id string, patch TodoPatch) (*Todo, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE todos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if err := checkAffected(res, "Todo", id); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

func scanTodo(s scanner) (*Todo, error) {
	var (
		t         Todo
		isActive  sql.NullBool
		priority  sql.NullString
		deletedAt sql.NullString
	)
	err := s.Scan(&t.ID, &t.ActivityGroupID, &t.Title, &isActive, &priority,
		&t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan todo: %w", err)
	}

	t.IsActive = !isActive.Valid || isActive.Bool
	t.Priority = DefaultTodoPriority
	if priority.Valid {
		t.Priority = priority.String
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.String
	}
	return &t, nil
}
