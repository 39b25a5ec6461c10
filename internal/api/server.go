// Package api serves the REST endpoints, the realtime websocket upgrade,
// and operational endpoints (/metrics, /healthz) over one listener.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/config"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wires the store, auth, and realtime core behind the router.
type Server struct {
	config   *config.Config
	store    *store.Store
	tokens   *auth.Manager
	registry *realtime.Registry
	notifier *realtime.Notifier
	binder   *realtime.Binder

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	metrics    *HTTPMetrics

	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPrometheus overrides the process-global metrics registry. Tests use
// a fresh registry per server to avoid duplicate registration.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// New builds a Server and its realtime core. The prometheus registry
// defaults to the process-global one.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	for _, warning := range cfg.Warnings() {
		logger.Warn("config warning", "warning", warning)
	}

	s := &Server{
		config:     cfg,
		store:      st,
		tokens:     auth.NewManager(cfg.JWTSecret, 0),
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	var rtMetrics *realtime.Metrics
	if cfg.MetricsEnabled() {
		rtMetrics = realtime.NewMetrics(s.registerer)
		s.metrics = NewHTTPMetrics(s.registerer)
	}

	s.registry = realtime.NewRegistry(logger, rtMetrics)
	s.notifier = realtime.NewNotifier(s.registry, logger, rtMetrics)

	binderConfig := realtime.DefaultBinderConfig()
	if cfg.Realtime.SendQueueSize > 0 {
		binderConfig.SendQueueSize = cfg.Realtime.SendQueueSize
	}
	if cfg.Realtime.WriteTimeout.Std() > 0 {
		binderConfig.WriteTimeout = cfg.Realtime.WriteTimeout.Std()
	}
	if cfg.Realtime.MaxMessageSize > 0 {
		binderConfig.MaxMessageSize = cfg.Realtime.MaxMessageSize
	}
	s.binder = realtime.NewBinder(s.registry, binderConfig, logger, rtMetrics)

	return s
}

// Notifier exposes the fan-out publish side, mainly for tests.
func (s *Server) Notifier() *realtime.Notifier { return s.notifier }

// Registry exposes the connection registry, mainly for tests.
func (s *Server) Registry() *realtime.Registry { return s.registry }

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(tracing("trackfit"))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.config.MetricsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// The realtime channel upgrades outside the auth middleware: it
	// binds identity through its own handshake (see internal/realtime).
	r.Handle("/ws", s.binder)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.tokens.Middleware(writeError))

			r.Get("/me", s.handleMe)
			r.Post("/change-password", s.handleChangePassword)

			r.Get("/history", s.handleListEntries)
			r.Post("/history", s.handleAddEntry)
			r.Delete("/history/{id}", s.handleDeleteEntry)

			r.Get("/water", s.handleListWater)
			r.Post("/water", s.handleAddWater)
			r.Delete("/water/{id}", s.handleDeleteWater)

			r.Get("/weight", s.handleListWeight)
			r.Post("/weight", s.handleAddWeight)
			r.Delete("/weight/{id}", s.handleDeleteWeight)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Get("/check", s.handleAdminCheck)
				r.Get("/stats", s.handleAdminStats)
				r.Get("/users", s.handleAdminListUsers)
				r.Get("/users/{id}", s.handleAdminUserDetail)
				r.Post("/users/{id}/toggle-admin", s.handleAdminToggle)
				r.Post("/users/{id}/reset-password", s.handleAdminResetPassword)
				r.Delete("/users/{id}", s.handleAdminDeleteUser)
			})
		})
	})

	return r
}

// Run starts the listener and blocks until a signal or listen error.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.config.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-shutdown:
		s.logger.Info("shutting down")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
