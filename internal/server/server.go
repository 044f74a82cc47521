// Package server assembles the gateway's HTTP surface: routing,
// middleware, and lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/portalgate/portalgate/internal/errors"
	"github.com/portalgate/portalgate/internal/observability"
	"github.com/portalgate/portalgate/internal/ratelimit"
	"github.com/portalgate/portalgate/internal/server/handlers"
	"github.com/portalgate/portalgate/internal/server/middleware"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the gateway HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	addr       string
}

// New builds the server with the full middleware chain and routes.
func New(cfg Config, limiter *ratelimit.Limiter, gateway *handlers.Gateway, health *handlers.Health) *Server {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.RequestMetrics)
	router.Use(middleware.RateLimit(limiter))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.RespondWithError(w, r,
			apperrors.NewNotFoundError(fmt.Sprintf("Route %s not found", r.URL.Path)))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.RespondWithError(w, r,
			apperrors.NewMethodNotAllowedError(fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path)))
	})

	registerRoutes(router, gateway, health)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		router: router,
		addr:   addr,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("gateway listening", zap.String("addr", s.addr))
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
