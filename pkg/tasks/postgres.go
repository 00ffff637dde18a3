package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresStore persists categories and tasks in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateCategory inserts a new category
func (s *PostgresStore) CreateCategory(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (id, name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		category.ID, category.Name, category.UserID, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategory fetches a category scoped to its owner
func (s *PostgresStore) GetCategory(ctx context.Context, id, userID string) (*Category, error) {
	query := `
		SELECT id, name, user_id, created_at, updated_at
		FROM categories
		WHERE id = $1 AND user_id = $2`

	category := &Category{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&category.ID, &category.Name, &category.UserID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// ListCategories returns the owner's categories sorted by name
func (s *PostgresStore) ListCategories(ctx context.Context, userID string) ([]*Category, error) {
	query := `
		SELECT id, name, user_id, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		category := &Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.UserID,
			&category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory updates a category's name
func (s *PostgresStore) UpdateCategory(ctx context.Context, category *Category) error {
	query := `
		UPDATE categories
		SET name = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4`

	result, err := s.db.ExecContext(ctx, query,
		category.Name, category.UpdatedAt, category.ID, category.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category and all of its tasks in one transaction
func (s *PostgresStore) DeleteCategory(ctx context.Context, id, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM tasks WHERE category_id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category tasks: %w", err)
	}
	deletedTasks, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tasks: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return 0, ErrCategoryNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return int(deletedTasks), nil
}

// CreateTask inserts a new task
func (s *PostgresStore) CreateTask(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (id, title, description, status, due_date, category_id, user_id, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, c.id, $7, $8, $9
		FROM categories c
		WHERE c.id = $6 AND c.user_id = $7`

	result, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.DueDate,
		task.CategoryID, task.UserID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// GetTask fetches a task scoped to its owner
func (s *PostgresStore) GetTask(ctx context.Context, id, userID string) (*Task, error) {
	query := `
		SELECT id, title, description, status, due_date, category_id, user_id, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2`

	task := &Task{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.DueDate,
		&task.CategoryID, &task.UserID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns one page of the owner's tasks matching the filter
func (s *PostgresStore) ListTasks(ctx context.Context, userID string, filter TaskFilter) (*TaskPage, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DueDate != nil {
		args = append(args, *filter.DueDate)
		conditions = append(conditions, fmt.Sprintf("due_date::date = $%d::date", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = DefaultPage
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, title, description, status, due_date, category_id, user_id, created_at, updated_at
		FROM tasks
		WHERE %s
		ORDER BY due_date, id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	result := make([]*Task, 0)
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status,
			&task.DueDate, &task.CategoryID, &task.UserID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}
	return &TaskPage{
		Tasks:      result,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateTask replaces a task's mutable fields
func (s *PostgresStore) UpdateTask(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, due_date = $4, category_id = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
		AND EXISTS (SELECT 1 FROM categories c WHERE c.id = $5 AND c.user_id = $8)`

	result, err := s.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.DueDate, task.CategoryID,
		task.UpdatedAt, task.ID, task.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task for the given owner
func (s *PostgresStore) DeleteTask(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

var _ Store = (*PostgresStore)(nil)
