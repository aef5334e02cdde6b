package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = "id, email, title, created_at, updated_at, deleted_at"

// ActivityRepository persists activity groups
type ActivityRepository struct {
	db    *sql.DB
	newID func() (string, error)
	now   func() time.Time
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{
		db:    db,
		newID: newID,
		now:   time.Now,
	}
}

// Add inserts a new activity group
func (r *ActivityRepository) Add(ctx context.Context, payload NewActivity) (*Activity, error) {
	id, err := r.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	createdAt := r.now().UTC()

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO activities (id, email, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, payload.Email, payload.Title, createdAt, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert activity: %w", err)
	}

	return &Activity{
		ID:        id,
		Email:     payload.Email,
		Title:     payload.Title,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// List returns at most ListLimit activity groups
func (r *ActivityRepository) List(ctx context.Context) ([]Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities LIMIT ?", ListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}

	return activities, nil
}

// Get returns the activity group with the given ID
func (r *ActivityRepository) Get(ctx context.Context, id string) (*Activity, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "Activity", ID: id}
	}
	return a, err
}

// Delete removes the activity group with the given ID
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return checkAffected(res, "Activity", id)
}

// UpdateTitle changes the title and returns the updated row
func (r *ActivityRepository) UpdateTitle(ctx context.Context, id, title string) (*Activity, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE activities SET title = ?, updated_at = ? WHERE id = ?",
		title, r.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}
	if err := checkAffected(res, "Activity", id); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*Activity, error) {
	var (
		a         Activity
		deletedAt sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Email, &a.Title, &a.CreatedAt, &a.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.String
	}
	return &a, nil
}

// checkAffected maps a zero-row write to NotFoundError
func checkAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
