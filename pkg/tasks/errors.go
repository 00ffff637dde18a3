package tasks

import "errors"

// Domain errors. Lookups scoped to a different owner return the same
// not-found errors as genuinely missing records.
var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrDuplicateCategory = errors.New("a category with that name already exists")
	ErrInvalidStatus     = errors.New("status is either: pending, ongoing, completed")
	ErrMissingField      = errors.New("all fields are required")
	ErrInvalidPagination = errors.New("page and limit must be greater than 0")
)
