// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/docustore/internal/adapter"
	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/metrics"
	"github.com/docustore/internal/service"
	"github.com/docustore/internal/session"
	"github.com/gorilla/mux"
)

// SessionManager creates, loads and ends wallet sessions
type SessionManager interface {
	Connect(ctx context.Context, address string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Disconnect(ctx context.Context, id string) error
	Now() time.Time
}

// NodeStatusProvider reports the chain node the server talks to
type NodeStatusProvider interface {
	Status(ctx context.Context) (*adapter.NodeStatus, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	sessions   SessionManager
	pages      *service.Deps
	node       NodeStatusProvider
	limiter    *RateLimiter
	logger     *logging.Logger
	config     *ServerConfig

	// Sessions with a write in flight; a second write gets 409
	inflight sync.Map
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestsPerSecond int
	Burst             int
	Backend           string
	Contract          string
}

// NewServer creates a new API server instance. node may be nil when the
// contract is emulated.
func NewServer(
	config *ServerConfig,
	sessions SessionManager,
	pages *service.Deps,
	node NodeStatusProvider,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if pages.Now == nil {
		pages.Now = sessions.Now
	}
	if pages.Logger == nil {
		pages.Logger = logger
	}

	s := &Server{
		router:   mux.NewRouter(),
		sessions: sessions,
		pages:    pages,
		node:     node,
		logger:   logger.WithComponent("api"),
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.limiter = NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Order matters: logging first so everything after has a request logger
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware)
	s.router.Use(MetricsMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	limit := RateLimitMiddleware(s.limiter)
	s.router.Handle("/health", limit(http.HandlerFunc(s.handleHealth))).Methods("GET")
	s.router.Handle("/metrics", limit(metrics.Handler())).Methods("GET")

	// The limiter runs after the session is resolved so it can key on a valid id
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(SessionMiddleware(s.sessions))
	api.Use(limit)

	// Session endpoints
	api.HandleFunc("/session", s.handleConnect).Methods("POST")
	api.HandleFunc("/session", s.handleGetSession).Methods("GET")
	api.HandleFunc("/session", s.handleDisconnect).Methods("DELETE")

	api.HandleFunc("/navigation", s.handleNavigation).Methods("GET")
	api.HandleFunc("/dashboard", s.handleDashboard).Methods("GET")

	// Todo endpoints
	api.HandleFunc("/todos", s.handleGetTodos).Methods("GET")
	api.HandleFunc("/todos", s.handleAddTodo).Methods("POST")
	api.HandleFunc("/todos/{id}/toggle", s.handleToggleTodo).Methods("POST")
	api.HandleFunc("/todos/{id}", s.handleDeleteTodo).Methods("DELETE")

	// Profile endpoints
	api.HandleFunc("/profile", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/profile", s.handleSaveProfile).Methods("PUT")

	// Settings endpoints
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PATCH")
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string              `json:"status"`
	Service   string              `json:"service"`
	Backend   string              `json:"backend"`
	Contract  string              `json:"contract"`
	Node      *adapter.NodeStatus `json:"node,omitempty"`
	NodeError string              `json:"nodeError,omitempty"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Service:  "docustore",
		Backend:  s.config.Backend,
		Contract: s.config.Contract,
	}

	if s.node != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, err := s.node.Status(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.NodeError = errors.Categorize(err).Message
		} else {
			resp.Node = status
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// beginWrite marks a write in flight for the session. The returned release
// must be called; ok is false when another write is already running.
func (s *Server) beginWrite(sess *session.Session) (release func(), ok bool) {
	if sess == nil {
		return func() {}, true
	}
	if _, busy := s.inflight.LoadOrStore(sess.ID, struct{}{}); busy {
		return nil, false
	}
	return func() { s.inflight.Delete(sess.ID) }, true
}

// Router returns the HTTP handler, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// when stopped by Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunJanitor drops idle rate limiters and expired notifications every
// interval until ctx is done
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiters := s.limiter.Cleanup()
			notes := 0
			if s.pages.Notifications != nil {
				notes = s.pages.Notifications.Sweep()
			}
			if limiters > 0 || notes > 0 {
				s.logger.WithFields(map[string]interface{}{
					"limiters":      limiters,
					"notifications": notes,
				}).Debug("Janitor pass")
			}
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
