package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/waitlist/internal/config"
)

// Server represents the waitlist API server.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server around the configured routes.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{config: cfg, handler: handler}
}

// ListenAndServe starts the HTTP server. Timeouts are tight: every request
// is a small JSON payload, so anything slow is a stuck client.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
