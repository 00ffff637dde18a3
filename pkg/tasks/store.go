package tasks

import "context"

// Store persists categories and tasks. Every read and write is scoped to
// an owner: a record belonging to another user behaves exactly like a
// record that does not exist.
//
// Implementations are responsible for per-owner category name uniqueness
// and for deleting a category's tasks atomically with the category.
type Store interface {
	// CreateCategory inserts a new category. Returns ErrDuplicateCategory
	// when the owner already has a category with the same name.
	CreateCategory(ctx context.Context, category *Category) error

	// GetCategory fetches a category by ID for the given owner
	GetCategory(ctx context.Context, id, userID string) (*Category, error)

	// ListCategories returns all categories for the given owner
	ListCategories(ctx context.Context, userID string) ([]*Category, error)

	// UpdateCategory updates a category's name. Returns ErrCategoryNotFound
	// when the category does not exist for the owner.
	UpdateCategory(ctx context.Context, category *Category) error

	// DeleteCategory removes a category and all of its tasks in one
	// atomic operation, returning the number of tasks removed.
	DeleteCategory(ctx context.Context, id, userID string) (int, error)

	// CreateTask inserts a new task. Returns ErrCategoryNotFound when the
	// referenced category does not exist for the owner.
	CreateTask(ctx context.Context, task *Task) error

	// GetTask fetches a task by ID for the given owner
	GetTask(ctx context.Context, id, userID string) (*Task, error)

	// ListTasks returns one page of the owner's tasks matching the filter
	ListTasks(ctx context.Context, userID string, filter TaskFilter) (*TaskPage, error)

	// UpdateTask replaces a task's fields. Returns ErrTaskNotFound when
	// the task does not exist for the owner.
	UpdateTask(ctx context.Context, task *Task) error

	// DeleteTask removes a task for the given owner
	DeleteTask(ctx context.Context, id, userID string) error
}
