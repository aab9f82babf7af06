package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verdict-lab/project-verdict/internal/access"
	corecfg "github.com/verdict-lab/project-verdict/internal/core/config"
	"github.com/verdict-lab/project-verdict/internal/grant"
	"github.com/verdict-lab/project-verdict/internal/ingestion"
	"github.com/verdict-lab/project-verdict/internal/notifications"
	"github.com/verdict-lab/project-verdict/internal/observability"
	"github.com/verdict-lab/project-verdict/internal/policy"
	"github.com/verdict-lab/project-verdict/internal/processing"
	"github.com/verdict-lab/project-verdict/internal/queue"
	"github.com/verdict-lab/project-verdict/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Mode == "debug" {
		level.Set(slog.LevelDebug)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Load Policy (event schemas, aggregates, rules, features)
	pol := policy.Default()
	if cfg.Policy.Path != "" {
		pol, err = policy.Load(cfg.Policy.Path)
		if err != nil {
			slog.Error("Failed to load policy", "path", cfg.Policy.Path, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded policy file", "path", cfg.Policy.Path)
	} else {
		slog.Info("No policy file configured, using built-in policy")
	}

	stores, err := policy.Build(pol)
	if err != nil {
		slog.Error("Failed to build policy", "error", err)
		os.Exit(1)
	}
	slog.Info("Policy built",
		"event_schemas", stores.Schemas.Len(),
		"aggregates", stores.Aggregates.Len(),
		"rules", stores.Rules.Len(),
		"features", stores.Features.Len(),
	)

	// 3. Initialize Observability
	telemetry, err := observability.Init(context.Background(), observability.Config{
		ServiceName:    "verdict",
		ServiceVersion: "dev",
		Environment:    cfg.Telemetry.Environment,
		Logger:         logger,
	})
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Notifications
	sender := notifications.NewWebhookSender(cfg.Resolved.NotificationTimeout)
	notifier := notifications.NewService(cfg.Notifications.Subscribers, sender, cfg.Notifications.BufferSize, telemetry.Metrics)

	// 5. Initialize Grants (access state + circuit breaker)
	grants := grant.NewService(stores.Features, notifier, grant.Config{
		Window:          cfg.Resolved.BreakerWindow,
		Interval:        cfg.Resolved.BreakerInterval,
		DenialThreshold: cfg.Breaker.DenialThreshold,
	}, telemetry.Metrics)

	// 6. Initialize Event Pipeline (queue, processor, consumer pool)
	eventQueue := queue.New(cfg.Queue.Capacity)
	processor := processing.NewProcessor(stores.Aggregates, stores.Rules, stores.Features, grants)
	pool := processing.NewConsumerPool(eventQueue, processor, cfg.Queue.Consumers, telemetry.Metrics)

	// 7. Initialize HTTP Services
	ingestionSvc := ingestion.NewService(stores.Schemas, eventQueue, telemetry.Metrics, cfg.Server.MaxBodySizeMB)
	accessSvc := access.NewService(stores.Features, grants)

	// 8. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	accessSvc.RegisterRoutes(srv.Engine)

	// 9. Start Services
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	// Background workers outlive the HTTP server so in-flight events can
	// drain after ingestion stops.
	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	poolDone := make(chan error, 1)
	go func() { poolDone <- pool.Run(backgroundCtx) }()

	breakerDone := make(chan error, 1)
	go func() { breakerDone <- grants.RunBreakerLoop(backgroundCtx) }()

	notifDone := make(chan error, 1)
	go func() { notifDone <- notifier.Run(backgroundCtx) }()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		stopServer()
	}()

	// HTTP server blocks until serverCtx is cancelled.
	if err := srv.Run(serverCtx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// Ingestion has stopped; close the queue so consumers drain what is
	// buffered, then stop the periodic workers.
	eventQueue.Close()
	if err := <-poolDone; err != nil {
		slog.Error("Consumer pool stopped with error", "error", err)
	}

	stopBackground()
	<-breakerDone
	<-notifDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down observability", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
