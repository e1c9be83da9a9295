// Command participant runs one client's end of the MP-FHE protocol against
// a coordinator: join, bootstrap, submit an encrypted argument, then
// collect peer decryption shares and print the combined result.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocx/fhecoord/internal/config"
	"github.com/ocx/fhecoord/internal/participant"
	"github.com/ocx/fhecoord/internal/telemetry"
)

func main() {
	cfg := config.Get()

	var value uint64
	flag.Uint64Var(&value, "value", 0, "this participant's plaintext operand")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry.ServiceName, cfg.Telemetry.ExporterEndpoint)
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	driver := participant.NewDriver(participant.Config{
		ServerURL:     cfg.Participant.ServerURL,
		Port:          ":" + defaultPort(cfg.Participant.Port, "9090"),
		ClientID:      cfg.Participant.ClientID,
		SessionID:     cfg.Participant.SessionID,
		CRSSeed:       cfg.Participant.CRSSeed,
		PeerEndpoints: cfg.Participant.PeerEndpoints,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := driver.Run(ctx, value)
	if err != nil {
		log.Fatalf("participant protocol failed: %v", err)
	}
	slog.Info("participant: protocol complete", "result", result)
}

func defaultPort(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
