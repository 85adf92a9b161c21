package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port int
	Bind string
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// StatusFunc returns the body served on /status.
type StatusFunc func() any

// TriggerResponse is the body returned by the trigger endpoints.
type TriggerResponse struct {
	Kind   string `json:"kind,omitempty"`
	Status string `json:"status"`
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithStatusFunc sets the /status provider.
func WithStatusFunc(fn StatusFunc) ServerOption {
	return func(s *Server) {
		s.statusFunc = fn
	}
}

// WithTriggerStore enables the trigger endpoints.
func WithTriggerStore(store trigger.Store) ServerOption {
	return func(s *Server) {
		s.triggers = store
	}
}

// WithMetricsHandler mounts handler on /metrics.
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsHandler = handler
	}
}

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the local HTTP server for probes, status and operator triggers.
// It is safe for concurrent use.
type Server struct {
	health         *HealthManager
	config         ServerConfig
	router         *chi.Mux
	statusFunc     StatusFunc
	triggers       trigger.Store
	metricsHandler http.Handler
	logger         *slog.Logger

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server with the given health manager and config.
func NewServer(health *HealthManager, config ServerConfig, opts ...ServerOption) *Server {
	s := &Server{
		health: health,
		config: config,
		router: chi.NewRouter(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/status", s.handleStatus)

	s.router.Route("/triggers", func(r chi.Router) {
		r.Post("/{kind}", s.handleAssertTrigger)
		r.Delete("/", s.handleClearTriggers)
	})

	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler)
	}
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// LivezResponse is the response format for /healthz endpoint.
type LivezResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LivezResponse{Status: "alive"})
}

// handleReadyz returns 503 only when a critical component has failed.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	status := s.health.Status()
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.statusFunc == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "status not available")
		return
	}
	writeJSON(w, http.StatusOK, s.statusFunc())
}

func (s *Server) handleAssertTrigger(w http.ResponseWriter, r *http.Request) {
	if s.triggers == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "triggers not available")
		return
	}

	kind, err := trigger.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := s.triggers.Assert(kind); err != nil {
		s.logger.Error("failed to assert trigger", "kind", kind, "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("trigger asserted via http", "kind", kind, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, TriggerResponse{Kind: kind.String(), Status: "asserted"})
}

func (s *Server) handleClearTriggers(w http.ResponseWriter, _ *http.Request) {
	if s.triggers == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "triggers not available")
		return
	}
	if err := s.triggers.Clear(); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TriggerResponse{Status: "cleared"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Listen binds the configured address. Start serves on it.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", s.config.Addr(), err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr()
}

// Start serves until Shutdown. It calls Listen if needed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.server = &http.Server{
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	server := s.server
	ln = s.listener
	s.mu.Unlock()

	err := server.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("http server error; %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	ln := s.listener
	s.mu.RUnlock()

	if server == nil {
		if ln != nil {
			_ = ln.Close()
		}
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}
	return nil
}
