package accounts

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskvault/taskvault/pkg/contextkeys"
	"github.com/taskvault/taskvault/pkg/httputil"
	"github.com/taskvault/taskvault/pkg/observability"
	"github.com/taskvault/taskvault/pkg/password"
)

// Handlers handles the /users HTTP surface
type Handlers struct {
	service *Service
	metrics *observability.Metrics
}

// NewHandlers creates a new accounts handlers instance. metrics may be nil.
func NewHandlers(service *Service, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		service: service,
		metrics: metrics,
	}
}

// RegisterPublicRoutes registers the unauthenticated routes
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/users/register", h.register).Methods("POST")
	router.HandleFunc("/users/login", h.login).Methods("POST")
}

// RegisterProtectedRoutes registers the routes behind the auth middleware
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/users/me", h.me).Methods("GET")
	router.HandleFunc("/users/me", h.updateMe).Methods("PUT")
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// register handles POST /users/register
func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	_, err := h.service.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RegistrationsTotal.Inc()
	}
	httputil.WriteMessage(w, http.StatusCreated, "User registered successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /users/login
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	signed, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if h.metrics != nil && errors.Is(err, ErrAuthenticationFailed) {
			h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	httputil.WriteSuccess(w, map[string]string{"token": signed})
}

// me handles GET /users/me
func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

type updateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// updateMe handles PUT /users/me
func (h *Handlers) updateMe(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req updateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	_, err := h.service.UpdateProfile(r.Context(), userID, req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "User updated")
}

// writeError translates service errors into the HTTP taxonomy. Anything
// unexpected is logged and collapsed into a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var weak *password.WeakPasswordError
	switch {
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrDuplicateUsername),
		errors.Is(err, ErrDuplicateEmail):
		httputil.WriteBadRequest(w, err.Error())
	case errors.As(err, &weak):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrAuthenticationFailed):
		httputil.WriteUnauthorized(w, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("account operation failed")
		httputil.WriteInternalError(w)
	}
}
