package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service implements category and task operations on top of a Store.
// Every operation takes the acting user's ID and never touches records
// owned by anyone else.
type Service struct {
	store Store
}

// NewService creates a new task service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateCategory creates a category for the user. Names are lowercased
// and trimmed before storage.
func (s *Service) CreateCategory(ctx context.Context, userID, name string) (*Category, error) {
	name = NormalizeCategoryName(name)
	if name == "" {
		return nil, ErrMissingField
	}

	now := time.Now().UTC()
	category := &Category{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory fetches one of the user's categories
func (s *Service) GetCategory(ctx context.Context, userID, id string) (*Category, error) {
	return s.store.GetCategory(ctx, id, userID)
}

// ListCategories returns all of the user's categories
func (s *Service) ListCategories(ctx context.Context, userID string) ([]*Category, error) {
	return s.store.ListCategories(ctx, userID)
}

// UpdateCategory renames one of the user's categories
func (s *Service) UpdateCategory(ctx context.Context, userID, id, name string) (*Category, error) {
	name = NormalizeCategoryName(name)
	if name == "" {
		return nil, ErrMissingField
	}

	category, err := s.store.GetCategory(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes one of the user's categories together with all
// of its tasks, returning the deleted category and its task count.
func (s *Service) DeleteCategory(ctx context.Context, userID, id string) (*Category, int, error) {
	category, err := s.store.GetCategory(ctx, id, userID)
	if err != nil {
		return nil, 0, err
	}

	deleted, err := s.store.DeleteCategory(ctx, id, userID)
	if err != nil {
		return nil, 0, err
	}
	return category, deleted, nil
}

// CreateTaskInput carries the fields for a new task. Status defaults to
// pending and DueDate to a week out when left unset.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      Status
	DueDate     *time.Time
	CategoryID  string
}

// CreateTask creates a task for the user under one of their categories
func (s *Service) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*Task, error) {
	if input.Title == "" || input.Description == "" || input.CategoryID == "" {
		return nil, ErrMissingField
	}

	status := input.Status
	if status == "" {
		status = StatusPending
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	now := time.Now().UTC()
	dueDate := now.Add(DefaultDueDateOffset)
	if input.DueDate != nil {
		dueDate = input.DueDate.UTC()
	}

	task := &Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		DueDate:     dueDate,
		CategoryID:  input.CategoryID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask fetches one of the user's tasks
func (s *Service) GetTask(ctx context.Context, userID, id string) (*Task, error) {
	return s.store.GetTask(ctx, id, userID)
}

// ListTasks returns one page of the user's tasks matching the filter
func (s *Service) ListTasks(ctx context.Context, userID string, filter TaskFilter) (*TaskPage, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, ErrInvalidStatus
	}
	if filter.Page < 0 || filter.Limit < 0 {
		return nil, ErrInvalidPagination
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	return s.store.ListTasks(ctx, userID, filter)
}

// UpdateTaskInput carries the replacement fields for a task. All fields
// are required.
type UpdateTaskInput struct {
	Title       string
	Description string
	Status      Status
	DueDate     *time.Time
	CategoryID  string
}

// UpdateTask replaces one of the user's tasks
func (s *Service) UpdateTask(ctx context.Context, userID, id string, input UpdateTaskInput) (*Task, error) {
	if input.Title == "" || input.Description == "" || input.CategoryID == "" ||
		input.Status == "" || input.DueDate == nil {
		return nil, ErrMissingField
	}
	if !ValidStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.store.GetTask(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategory(ctx, input.CategoryID, userID); err != nil {
		return nil, err
	}

	task.Title = input.Title
	task.Description = input.Description
	task.Status = input.Status
	task.DueDate = input.DueDate.UTC()
	task.CategoryID = input.CategoryID
	task.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes one of the user's tasks
func (s *Service) DeleteTask(ctx context.Context, userID, id string) error {
	return s.store.DeleteTask(ctx, id, userID)
}
