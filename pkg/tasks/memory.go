package tasks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
// A single mutex guards both maps so cascade deletes and the
// check-then-insert in CreateTask stay atomic.
type MemoryStore struct {
	mu         sync.Mutex
	categories map[string]*Category
	tasks      map[string]*Task
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]*Category),
		tasks:      make(map[string]*Task),
	}
}

// CreateCategory inserts a new category
func (s *MemoryStore) CreateCategory(_ context.Context, category *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.UserID == category.UserID && existing.Name == category.Name {
			return ErrDuplicateCategory
		}
	}

	c := *category
	s.categories[c.ID] = &c
	return nil
}

// GetCategory fetches a category scoped to its owner
func (s *MemoryStore) GetCategory(_ context.Context, id, userID string) (*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok || category.UserID != userID {
		return nil, ErrCategoryNotFound
	}
	c := *category
	return &c, nil
}

// ListCategories returns the owner's categories sorted by name
func (s *MemoryStore) ListCategories(_ context.Context, userID string) ([]*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories := make([]*Category, 0)
	for _, category := range s.categories {
		if category.UserID == userID {
			c := *category
			categories = append(categories, &c)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// UpdateCategory updates a category's name
func (s *MemoryStore) UpdateCategory(_ context.Context, category *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok || existing.UserID != category.UserID {
		return ErrCategoryNotFound
	}

	for _, other := range s.categories {
		if other.ID != category.ID && other.UserID == category.UserID && other.Name == category.Name {
			return ErrDuplicateCategory
		}
	}

	c := *category
	c.CreatedAt = existing.CreatedAt
	s.categories[c.ID] = &c
	return nil
}

// DeleteCategory removes a category and all of its tasks
func (s *MemoryStore) DeleteCategory(_ context.Context, id, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok || category.UserID != userID {
		return 0, ErrCategoryNotFound
	}

	deleted := 0
	for taskID, task := range s.tasks {
		if task.CategoryID == id {
			delete(s.tasks, taskID)
			deleted++
		}
	}
	delete(s.categories, id)
	return deleted, nil
}

// CreateTask inserts a new task after checking its category exists for the owner
func (s *MemoryStore) CreateTask(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[task.CategoryID]
	if !ok || category.UserID != task.UserID {
		return ErrCategoryNotFound
	}

	t := *task
	s.tasks[t.ID] = &t
	return nil
}

// GetTask fetches a task scoped to its owner
func (s *MemoryStore) GetTask(_ context.Context, id, userID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	t := *task
	return &t, nil
}

// ListTasks returns one page of the owner's tasks matching the filter
func (s *MemoryStore) ListTasks(_ context.Context, userID string, filter TaskFilter) (*TaskPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*Task, 0)
	for _, task := range s.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.CategoryID != "" && task.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.DueDate != nil && !sameDay(task.DueDate, *filter.DueDate) {
			continue
		}
		t := *task
		matched = append(matched, &t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DueDate.Equal(matched[j].DueDate) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].DueDate.Before(matched[j].DueDate)
	})

	return paginate(matched, filter.Page, filter.Limit), nil
}

// UpdateTask replaces a task's mutable fields
func (s *MemoryStore) UpdateTask(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return ErrTaskNotFound
	}

	category, ok := s.categories[task.CategoryID]
	if !ok || category.UserID != task.UserID {
		return ErrCategoryNotFound
	}

	t := *task
	t.CreatedAt = existing.CreatedAt
	s.tasks[t.ID] = &t
	return nil
}

// DeleteTask removes a task for the given owner
func (s *MemoryStore) DeleteTask(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func paginate(tasks []*Task, page, limit int) *TaskPage {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	total := len(tasks)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &TaskPage{
		Tasks:      tasks[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

var _ Store = (*MemoryStore)(nil)
