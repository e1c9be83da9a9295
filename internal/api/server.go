// Package api is the coordinator's HTTP transport: routing, per-route
// timeouts, and JSON request/response shapes. All business logic lives in
// internal/sessionsvc; handlers here only translate HTTP <-> service calls.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ocx/fhecoord/internal/middleware"
	"github.com/ocx/fhecoord/internal/monitoring"
	"github.com/ocx/fhecoord/internal/sessionsvc"
)

const (
	defaultRouteTimeout = 60 * time.Second
	longRouteTimeout    = 300 * time.Second
	maxDataBodyBytes    = 100 << 20 // 100MB cap on encrypted data submission
)

// Server is the coordinator's HTTP surface.
type Server struct {
	service *sessionsvc.Service
	metrics *monitoring.Metrics
	logger  *slog.Logger
	http    *http.Server
}

func NewServer(service *sessionsvc.Service, metrics *monitoring.Metrics, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{service: service, metrics: metrics, logger: logger}

	router := mux.NewRouter()
	router.Use(middleware.Logging(logger))

	router.Handle("/health", http.TimeoutHandler(http.HandlerFunc(s.handleHealth), defaultRouteTimeout, "timeout")).Methods(http.MethodGet)
	router.Handle("/v1/sessions", http.TimeoutHandler(http.HandlerFunc(s.handleCreateSession), defaultRouteTimeout, "timeout")).Methods(http.MethodPost)
	router.Handle("/v1/sessions/{id}", http.TimeoutHandler(http.HandlerFunc(s.handleGetSession), defaultRouteTimeout, "timeout")).Methods(http.MethodGet)
	router.Handle("/v1/sessions/{id}", http.TimeoutHandler(http.HandlerFunc(s.handleJoin), longRouteTimeout, "timeout")).Methods(http.MethodPut)
	router.Handle("/v1/sessions/{id}/clients/{client_id}/bootstrap", http.TimeoutHandler(http.HandlerFunc(s.handleBootstrap), longRouteTimeout, "timeout")).Methods(http.MethodPut)
	router.Handle("/v1/sessions/{id}/clients/{client_id}/data", http.TimeoutHandler(http.HandlerFunc(s.handleSubmitData), longRouteTimeout, "timeout")).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  longRouteTimeout,
		WriteTimeout: longRouteTimeout,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// ListenAndServe blocks until the server stops. It returns nil on a clean
// Shutdown and any other error from the underlying listener.
func (s *Server) ListenAndServe() error {
	s.logger.Info("coordinator http server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains outstanding requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
