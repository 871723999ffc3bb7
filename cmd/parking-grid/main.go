package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-grid/internal/config"
	"parking-grid/internal/logging"
	"parking-grid/internal/parking"
	"parking-grid/internal/server"
	"parking-grid/internal/telemetry"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.New(ctx, telemetry.Options{
		ServiceName:    cfg.OTelConfig.ServiceName,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTelConfig.OTLPEndpoint,
		MetricInterval: cfg.OTelConfig.MetricInterval,
	})
	if err != nil {
		log.Printf("Failed to initialize telemetry, continuing without export: %v", err)
		tp = telemetry.NewNoop()
	}

	logging.Init(cfg.OTelConfig.ServiceName, cfg.Environment)

	layout, err := cfg.Layout(ctx)
	if err != nil {
		log.Fatalf("Failed to load lot layout: %v", err)
	}

	allocator, err := parking.NewInstrumentedAllocator(layout, tp)
	if err != nil {
		log.Fatalf("Failed to create parking lot: %v", err)
	}

	logging.Info(ctx, "parking lot ready",
		"width", layout.Width,
		"height", layout.Height,
		"entrance", layout.Entrance.String(),
		"mode", *mode,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, allocator, tp, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, allocator, tp, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, allocator, tp, sigChan)
	default:
		log.Fatalf("Invalid mode: %s. Must be cli, server, or both", *mode)
	}
}

func runCLI(ctx context.Context, cancel context.CancelFunc, allocator *parking.InstrumentedAllocator, tp *telemetry.Provider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	shell := parking.NewShell(allocator, tp, os.Stdin, os.Stdout)
	shell.Run(ctx)

	shutdownTelemetry(tp)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, allocator *parking.InstrumentedAllocator, tp *telemetry.Provider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, server.NewHandler(allocator, tp, cfg.OTelConfig.ServiceName))

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}

	shutdownTelemetry(tp)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, allocator *parking.InstrumentedAllocator, tp *telemetry.Provider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Port, server.NewHandler(allocator, tp, cfg.OTelConfig.ServiceName))

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		parking.NewShell(allocator, tp, os.Stdin, os.Stdout).Run(ctx)
		close(cliDone)
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
		shutdownServer(srv)
	case <-ctx.Done():
		shutdownServer(srv)
	}

	shutdownTelemetry(tp)
}

func shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func shutdownTelemetry(tp *telemetry.Provider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
