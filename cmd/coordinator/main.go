// Command coordinator runs the session aggregation HTTP service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ocx/fhecoord/internal/api"
	"github.com/ocx/fhecoord/internal/config"
	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/fhe"
	"github.com/ocx/fhecoord/internal/monitoring"
	"github.com/ocx/fhecoord/internal/sessionsvc"
	"github.com/ocx/fhecoord/internal/store"
	"github.com/ocx/fhecoord/internal/telemetry"
	"github.com/ocx/fhecoord/internal/worker"
)

func main() {
	cfg := config.Get()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry.ServiceName, cfg.Telemetry.ExporterEndpoint)
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	var sessionStore store.SessionStore
	var dispatcher dispatch.JobDispatcher

	if cfg.Postgres.URL != "" {
		pg, err := store.NewPostgresStore(cfg.Postgres.URL, cfg.Postgres.MaxSize, fhe.RingKindNative)
		if err != nil {
			log.Fatalf("connect postgres store: %v", err)
		}
		sessionStore = pg

		pgDispatch, err := dispatch.NewPostgresDispatcher(pg.DB())
		if err != nil {
			log.Fatalf("connect postgres dispatcher: %v", err)
		}
		dispatcher = pgDispatch
	} else {
		slog.Warn("pg.url not configured, using in-memory store and dispatcher (sessions do not survive restart)")
		sessionStore = store.NewInMemoryStore()
		dispatcher = dispatch.NewInMemoryDispatcher(256)
	}

	metrics := monitoring.NewMetrics()
	svc := sessionsvc.New(sessionStore, dispatcher, fhe.RingKindNative, logger)

	addr := ":" + defaultPort(cfg.Coordinator.Port, "8080")
	srv := api.NewServer(svc, metrics, logger, addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No separate worker process can reach the in-memory queue, so the
	// coordinator drains it itself.
	if memDispatch, ok := dispatcher.(*dispatch.InMemoryDispatcher); ok {
		pool := &worker.Pool{Dispatcher: memDispatch, Service: svc, Concurrent: cfg.Worker.Concurrent, Metrics: metrics, Logger: logger}
		go pool.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		slog.Info("coordinator: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("coordinator: shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("coordinator server failed: %v", err)
	}
	slog.Info("coordinator: stopped")
}

func defaultPort(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
