package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskvault/taskvault/pkg/accounts"
	"github.com/taskvault/taskvault/pkg/httputil"
	"github.com/taskvault/taskvault/pkg/middleware"
	"github.com/taskvault/taskvault/pkg/observability"
	"github.com/taskvault/taskvault/pkg/tasks"
)

// defaultMaxBodyBytes caps request bodies when Options does not set a limit
const defaultMaxBodyBytes = 1 << 20

// Server represents the API server. Public routes carry registration and
// login; everything else sits behind the bearer token middleware.
type Server struct {
	router          *mux.Router
	logger          *observability.Logger
	accountHandlers *accounts.Handlers
	taskHandlers    *tasks.Handlers
	auth            *middleware.AuthMiddleware
	rateLimit       *middleware.RateLimitMiddleware
	metrics         *observability.Metrics
	maxBodyBytes    int64
}

// Options carries the server's dependencies. Metrics and RateLimit may
// be nil.
type Options struct {
	Logger          *observability.Logger
	AccountHandlers *accounts.Handlers
	TaskHandlers    *tasks.Handlers
	Auth            *middleware.AuthMiddleware
	RateLimit       *middleware.RateLimitMiddleware
	Metrics         *observability.Metrics
	MaxBodyBytes    int64
}

// NewServer creates a new API server and sets up its routes
func NewServer(opts Options) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		logger:          opts.Logger,
		accountHandlers: opts.AccountHandlers,
		taskHandlers:    opts.TaskHandlers,
		auth:            opts.Auth,
		rateLimit:       opts.RateLimit,
		metrics:         opts.Metrics,
		maxBodyBytes:    opts.MaxBodyBytes,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = defaultMaxBodyBytes
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	public := s.router.NewRoute().Subrouter()
	s.accountHandlers.RegisterPublicRoutes(public)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.auth.Handler)
	s.accountHandlers.RegisterProtectedRoutes(protected)
	s.taskHandlers.RegisterProtectedRoutes(protected)
}

// Handler returns the server's handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}
	if s.rateLimit != nil {
		middlewares = append(middlewares, s.rateLimit.Handler)
	}
	middlewares = append(middlewares,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	)
	return httputil.Chain(middlewares...)(s.router)
}

// Router returns the underlying router, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}
