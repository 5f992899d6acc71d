package server

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server hosting the scoring router, providing
// controlled startup and shutdown.
type Server struct {
	server *http.Server
}

// ListenAndServe blocks until the server stops.
// After Shutdown it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and lets active requests complete
// within the deadline of ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewServer creates a server listening on address (e.g. ":5001") and serving router.
// Header size is limited; read and write timeouts come from configuration.
func NewServer(address string, readTimeout, writeTimeout time.Duration, router *ScoringRouter) *Server {
	s := Server{&http.Server{
		Addr:           address,
		Handler:        router.Mux(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: 1024 * 10,
	}}

	return &s
}
