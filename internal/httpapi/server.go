// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package httpapi exposes the account lifecycle over HTTP.
//
// Routes under /api/v1 mirror the account operations: users
// (registration), sessions (login/logout), profile, reset_password
// (request and consume), and status. Authentication is enforced by a
// middleware composing the exempt-path decision with the configured
// credential policy.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/access"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Server serves the account API.
type Server struct {
	addr       string
	svc        *auth.Service
	policy     access.Policy
	exempt     []string
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address in "host:port" format.
	Addr string

	// Service provides the account operations. Required.
	Service *auth.Service

	// Policy resolves principals for non-exempt routes. Required.
	Policy access.Policy

	// ExemptPaths bypass authentication.
	ExemptPaths []string

	// Metrics receives request and operation counters. Optional.
	Metrics *observability.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// NewServer creates an account API server.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, oops.Code("API_INVALID_DEPS").Errorf("auth service is required")
	}
	if opts.Policy == nil {
		return nil, oops.Code("API_INVALID_DEPS").Errorf("access policy is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    opts.Addr,
		svc:     opts.Service,
		policy:  opts.Policy,
		exempt:  opts.ExemptPaths,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// Handler returns the fully wired route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/status", s.route("status", http.HandlerFunc(s.handleStatus)))
	mux.Handle("POST /api/v1/users", s.route("register", http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/v1/sessions", s.route("login", http.HandlerFunc(s.handleLogin)))
	mux.Handle("DELETE /api/v1/sessions", s.route("logout", http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /api/v1/profile", s.route("profile", http.HandlerFunc(s.handleProfile)))
	mux.Handle("POST /api/v1/reset_password", s.route("reset_request", http.HandlerFunc(s.handleResetRequest)))
	mux.Handle("PUT /api/v1/reset_password", s.route("reset_consume", http.HandlerFunc(s.handleResetConsume)))
	return mux
}

// route wraps a handler with auth enforcement and request counting.
func (s *Server) route(name string, h http.Handler) http.Handler {
	return s.countRequests(name, s.requireAuth(h))
}

// Start begins serving the API. It returns an error channel that
// receives any server failure after startup; the channel is closed on
// graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countReset(stage, outcome string) {
	if s.metrics != nil {
		s.metrics.ResetsTotal.WithLabelValues(stage, outcome).Inc()
	}
}
