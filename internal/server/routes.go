package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelkit/reelkit/internal/metrics"
	"github.com/reelkit/reelkit/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/ratelimits", s.api.RateLimits)
		r.Get("/queue", s.api.ListQueue)
		r.Post("/queue/next", s.api.PostNext)
		r.Get("/posts", s.api.ListPosts)
	})
}
