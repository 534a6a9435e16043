// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-cognito-authorizer/internal/gateway"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/metrics"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the local HTTP emulation of the authorizer.
type Server struct {
	server    *http.Server
	handlers  *HandlerContext
	tlsConfig *tls.Config
	limiter   *ratelimit.Limiter
	logger    logger.Logger
}

// Config holds the server configuration.
type Config struct {
	// Address is the listen address (default: ":8080")
	Address string

	// Gateway answers authorizer events (required)
	Gateway *gateway.Handler

	// HealthChecker backs the probe endpoints (optional)
	HealthChecker HealthChecker

	// TLSConfig enables HTTPS (optional)
	TLSConfig *tls.Config

	// RateLimiter throttles /authorize per client IP (optional)
	RateLimiter *ratelimit.Limiter

	// Logger is the logging adapter (optional, defaults to discard)
	Logger logger.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway handler is required")
	}

	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		handlers: &HandlerContext{
			Gateway:       cfg.Gateway,
			HealthChecker: cfg.HealthChecker,
			logger:        log,
		},
		tlsConfig: cfg.TLSConfig,
		limiter:   cfg.RateLimiter,
		logger:    log,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}
	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	r.With(ratelimit.Middleware(s.limiter, s.rateLimited)).
		Post("/authorize", s.handlers.AuthorizeHandler)

	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithContext(r.Context()).Warn("Rate limit exceeded",
		logger.String("client", s.limiter.ClientKey(r)))
	writeError(w, ErrRateLimited, http.StatusTooManyRequests)
}

// Handler returns the router, for mounting in tests or another server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.server.Addr
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop. It returns nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server", logger.String("address", ln.Addr().String()))
		err = s.server.ServeTLS(ln, "", "")
	} else {
		s.logger.Info("Starting HTTP server", logger.String("address", ln.Addr().String()))
		err = s.server.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logger.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
