package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/waypoint/internal/auth"
	"github.com/mattjoyce/waypoint/internal/events"
	"github.com/mattjoyce/waypoint/internal/rpc"
)

// Dispatcher runs decoded commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, req rpc.Request) rpc.Result
}

// CommandCatalog lists registered commands.
type CommandCatalog interface {
	Commands() []rpc.CommandInfo
	Lookup(name string) (rpc.Access, bool)
}

// Pinger reports store liveness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config holds API server configuration.
type Config struct {
	// Listen is host:port, or unix:/path/to/socket.
	Listen string
	// Tokens are scoped bearer tokens. With none configured every caller is
	// treated as admin, which config validation only allows on a unix socket.
	Tokens []auth.TokenConfig
	// ShutdownTimeout bounds graceful shutdown. Zero means five seconds.
	ShutdownTimeout time.Duration
}

// Server represents the HTTP API server.
type Server struct {
	config     Config
	dispatcher Dispatcher
	catalog    CommandCatalog
	store      Pinger
	events     *events.Hub
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

// New creates a new API server instance.
func New(config Config, dispatcher Dispatcher, catalog CommandCatalog, store Pinger, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:     config,
		dispatcher: dispatcher,
		catalog:    catalog,
		store:      store,
		events:     hub,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Listen opens the configured listener. A unix socket left behind by a
// previous run is removed first.
func Listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		if path == "" {
			return nil, errors.New("unix socket path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create socket directory: %w", err)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %q: %w", path, err)
		}
		ln, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("listen on %q: %w", addr, err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", addr, err)
	}
	return ln, nil
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := Listen(s.config.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		<-errCh
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/rpc", s.handleRPC)
		r.With(s.requireScopes(auth.ScopeRead)).Get("/commands", s.handleCommands)
		r.With(s.requireScopes(auth.ScopeRead)).Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
