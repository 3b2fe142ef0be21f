// Package server serves derived, read-only views of bookshelves over HTTP
// for local previewing.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/session"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured
const DefaultShutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	api     bookshelf.ClientInterface
	session *session.Store
	logger  *logger.Logger
}

// New creates the preview server. sess may be nil, in which case /me always
// reports an anonymous session.
func New(addr string, api bookshelf.ClientInterface, sess *session.Store, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get()
	}
	s := &Server{
		api:     api,
		session: sess,
		logger:  log.With(map[string]interface{}{"component": "server"}),
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in request id and logging middleware
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(s.notFound)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowed)
	router.PanicHandler = s.panicHandler

	router.HandlerFunc(http.MethodGet, "/healthz", s.handleHealthCheck)
	router.HandlerFunc(http.MethodGet, "/shelves/:publicId", s.handleShelf)
	router.HandlerFunc(http.MethodGet, "/me", s.handleMe)

	return logger.RequestIDMiddleware(logger.HTTPMiddleware(router))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", map[string]interface{}{
			"addr": ln.Addr().String(),
		})
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}
