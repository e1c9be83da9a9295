// Command worker drains the durable job queue and runs the two
// asynchronous compute handlers.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	if cfg.Postgres.URL == "" {
		log.Fatalf("worker requires pg.url: the durable job queue has no in-memory cross-process counterpart")
	}

	pg, err := store.NewPostgresStore(cfg.Postgres.URL, cfg.Postgres.MaxSize, fhe.RingKindNative)
	if err != nil {
		log.Fatalf("connect postgres store: %v", err)
	}
	defer pg.Close()

	dispatcher, err := dispatch.NewPostgresDispatcher(pg.DB())
	if err != nil {
		log.Fatalf("connect postgres dispatcher: %v", err)
	}

	svc := sessionsvc.New(pg, dispatcher, fhe.RingKindNative, logger)
	metrics := monitoring.NewMetrics()

	concurrent := cfg.Worker.Concurrent
	if concurrent <= 0 {
		concurrent = 4
	}

	pool := &worker.Pool{
		Dispatcher: dispatcher,
		Service:    svc,
		Concurrent: concurrent,
		Metrics:    metrics,
		Logger:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("worker: starting", "concurrent", concurrent)
	pool.Run(ctx)
	slog.Info("worker: stopped")
}
