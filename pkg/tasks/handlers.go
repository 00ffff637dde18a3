package tasks

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taskvault/taskvault/pkg/contextkeys"
	"github.com/taskvault/taskvault/pkg/httputil"
	"github.com/taskvault/taskvault/pkg/observability"
)

// Handlers handles the /categories and /tasks HTTP surface. Both route
// groups require authentication; the acting user comes from the request
// context.
type Handlers struct {
	service *Service
	metrics *observability.Metrics
}

// NewHandlers creates a new tasks handlers instance. metrics may be nil.
func NewHandlers(service *Service, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		service: service,
		metrics: metrics,
	}
}

// RegisterProtectedRoutes registers the routes behind the auth middleware
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.createCategory).Methods("POST")
	router.HandleFunc("/categories", h.listCategories).Methods("GET")
	router.HandleFunc("/categories/{id}", h.getCategory).Methods("GET")
	router.HandleFunc("/categories/{id}", h.updateCategory).Methods("PUT")
	router.HandleFunc("/categories/{id}", h.deleteCategory).Methods("DELETE")

	router.HandleFunc("/tasks", h.createTask).Methods("POST")
	router.HandleFunc("/tasks", h.listTasks).Methods("GET")
	router.HandleFunc("/tasks/{id}", h.getTask).Methods("GET")
	router.HandleFunc("/tasks/{id}", h.updateTask).Methods("PATCH")
	router.HandleFunc("/tasks/{id}", h.deleteTask).Methods("DELETE")
}

type categoryRequest struct {
	Name string `json:"name"`
}

// createCategory handles POST /categories
func (h *Handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req categoryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), userID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Category created",
		"category": category,
	})
}

// listCategories handles GET /categories
func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	categories, err := h.service.ListCategories(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message":    "Categories fetched",
		"categories": categories,
	})
}

// getCategory handles GET /categories/{id}
func (h *Handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message":  "Category fetched",
		"category": category,
	})
}

// updateCategory handles PUT /categories/{id}
func (h *Handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), userID, id, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message":  "Category updated",
		"category": category,
	})
}

// deleteCategory handles DELETE /categories/{id}
func (h *Handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	category, deletedTasks, err := h.service.DeleteCategory(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CascadeDeletedTasks.Add(float64(deletedTasks))
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"message":       "Category deleted",
		"category":      category,
		"deleted_tasks": deletedTasks,
	})
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CategoryID  string     `json:"category_id"`
}

// createTask handles POST /tasks
func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req taskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	task, err := h.service.CreateTask(r.Context(), userID, CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Task created",
		"task":    task,
	})
}

// listTasks handles GET /tasks with optional category_id, status,
// due_date, page and limit query parameters
func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	filter := TaskFilter{
		CategoryID: httputil.ParseQueryString(r, "category_id", ""),
		Status:     Status(httputil.ParseQueryString(r, "status", "")),
	}

	page, err := httputil.ParseQueryInt(r, "page", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "page must be an integer")
		return
	}
	filter.Page = page

	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "limit must be an integer")
		return
	}
	filter.Limit = limit

	if raw := httputil.ParseQueryString(r, "due_date", ""); raw != "" {
		dueDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			dueDate, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			httputil.WriteBadRequest(w, "due_date must be an ISO 8601 date")
			return
		}
		filter.DueDate = &dueDate
	}

	tasksPage, err := h.service.ListTasks(r.Context(), userID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "Tasks fetched",
		"tasks":   tasksPage,
	})
}

// getTask handles GET /tasks/{id}
func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	task, err := h.service.GetTask(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "Task fetched",
		"task":    task,
	})
}

// updateTask handles PATCH /tasks/{id}
func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req taskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	_, err := h.service.UpdateTask(r.Context(), userID, id, UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Task updated")
}

// deleteTask handles DELETE /tasks/{id}
func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Task deleted")
}

// writeError translates service errors into the HTTP taxonomy. Anything
// unexpected is logged and collapsed into a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPagination),
		errors.Is(err, ErrDuplicateCategory):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrTaskNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("task operation failed")
		httputil.WriteInternalError(w)
	}
}
