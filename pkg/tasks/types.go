package tasks

import (
	"strings"
	"time"
)

// Status describes where a task sits in its lifecycle
type Status string

// Task statuses
const (
	StatusPending   Status = "pending"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// ValidStatus reports whether s is a known task status
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// DefaultDueDateOffset is applied when a task is created without a due date
const DefaultDueDateOffset = 7 * 24 * time.Hour

// Category groups tasks for a single owner. Names are stored lowercased
// and are unique per owner.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a unit of work owned by a user and filed under one of their categories
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	DueDate     time.Time `json:"due_date"`
	CategoryID  string    `json:"category_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeCategoryName lowercases and trims a category name
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TaskFilter narrows a task listing. Zero values mean "no constraint".
type TaskFilter struct {
	CategoryID string
	Status     Status
	DueDate    *time.Time
	Page       int
	Limit      int
}

// Default pagination bounds
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TaskPage is one page of a task listing
type TaskPage struct {
	Tasks      []*Task `json:"docs"`
	Total      int     `json:"total_docs"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}
