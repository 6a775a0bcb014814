// Package server exposes limiter, queue, and post log state over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/config"
	apperrors "github.com/reelkit/reelkit/internal/errors"
	"github.com/reelkit/reelkit/internal/observability"
	"github.com/reelkit/reelkit/internal/queue"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/scheduler"
	"github.com/reelkit/reelkit/internal/server/handlers"
	servermw "github.com/reelkit/reelkit/internal/server/middleware"
	"github.com/reelkit/reelkit/internal/store"
)

// Deps are the components the server reports on. Any may be nil.
type Deps struct {
	Limiter   *ratelimit.Registry
	Queue     *queue.Queue
	Scheduler *scheduler.Scheduler
	Store     *store.Store
	Version   string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	health *handlers.HealthManager
	api    *handlers.API
}

// New creates a new HTTP server instance
func New(cfg config.ServerConfig, deps Deps) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Order: request ID, metrics, recovery (innermost).
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	health := handlers.NewHealthManager(deps.Version)
	if deps.Store != nil && deps.Store.DB != nil {
		health.RegisterChecker("store", handlers.CheckFunc(deps.Store.DB.PingContext))
	}
	if deps.Queue != nil {
		health.RegisterChecker("queue", handlers.CheckFunc(func(context.Context) error {
			if deps.Queue.IsEmpty() {
				return handlers.ErrDegraded
			}
			return nil
		}))
	}
	if deps.Limiter != nil {
		health.RegisterChecker("ratelimits", handlers.CheckFunc(func(context.Context) error {
			return limiterExhausted(deps.Limiter)
		}))
	}

	s := &Server{
		router: r,
		cfg:    cfg,
		health: health,
		api: &handlers.API{
			Limiter:   deps.Limiter,
			Queue:     deps.Queue,
			Scheduler: deps.Scheduler,
			Store:     deps.Store,
		},
	}

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// Start listens on the configured address and blocks until the server stops.
// A graceful Shutdown is not reported as an error.
func (s *Server) Start() error {
	addr := s.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr))
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
}

// limiterExhausted degrades health while any service has no capacity left.
func limiterExhausted(limiter *ratelimit.Registry) error {
	for _, name := range limiter.Services() {
		if stats, ok := limiter.Statistics(name); ok && stats.Available == 0 {
			return fmt.Errorf("%s has no capacity: %w", name, handlers.ErrDegraded)
		}
	}
	return nil
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
