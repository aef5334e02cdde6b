package repository

import (
	"fmt"
	"time"
)

// IDLength is the length of generated resource identifiers
const IDLength = 24

// Default values applied to new todo items
const (
	DefaultTodoPriority = "very-high"
	DefaultTodoIsActive = true
)

// ListLimit caps every list query
const ListLimit = 10

// Activity represents an activity group row
type Activity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DeletedAt *string   `json:"deleted_at"`
}

// NewActivity is the payload for creating an activity group
type NewActivity struct {
	Title string
	Email string
}

// Todo represents a todo item row
type Todo struct {
	ID              string    `json:"id"`
	ActivityGroupID string    `json:"activity_group_id"`
	Title           string    `json:"title"`
	IsActive        bool      `json:"is_active"`
	Priority        string    `json:"priority"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	DeletedAt       *string   `json:"deleted_at"`
}

// NewTodo is the payload for creating a todo item
type NewTodo struct {
	Title           string
	ActivityGroupID string
}

// TodoPatch holds the fields a todo update may change; nil means unchanged
type TodoPatch struct {
	Title    *string
	IsActive *bool
}

// NotFoundError is returned when a row with the given ID does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s Not Found", e.Resource, e.ID)
}
