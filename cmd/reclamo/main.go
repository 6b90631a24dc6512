package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reclamo/reclamo/internal/api"
	"github.com/reclamo/reclamo/internal/config"
	"github.com/reclamo/reclamo/internal/conversation"
	"github.com/reclamo/reclamo/internal/events"
	eventsamqp "github.com/reclamo/reclamo/internal/events/amqp"
	eventsdirect "github.com/reclamo/reclamo/internal/events/direct"
	"github.com/reclamo/reclamo/internal/server"
	"github.com/reclamo/reclamo/internal/storage"
	storagememory "github.com/reclamo/reclamo/internal/storage/memory"
	storagesqlite "github.com/reclamo/reclamo/internal/storage/sqlite"
	"github.com/reclamo/reclamo/internal/telemetry"
	"github.com/reclamo/reclamo/internal/upstream"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("reclamo", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	publisher, err := newPublisher(cfg, store, logger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	client := upstream.NewClient(cfg.Upstream.BaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}))

	managerOpts := []conversation.Option{
		conversation.WithPollInterval(cfg.Chat.PollInterval),
	}
	if publisher != nil {
		managerOpts = append(managerOpts, conversation.WithPublisher(publisher))
	}
	manager := conversation.NewManager(client, store, logger, managerOpts...)

	srv := server.New(cfg.Server.Port, cfg.Server.AllowedOrigin, logger)
	api.NewHandler(manager, client, logger).Mount(srv.Router)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	logger.Info("reclamo started",
		slog.Int("port", cfg.Server.Port),
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.String("storage", cfg.Storage.Type),
		slog.String("events", cfg.Events.Type))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	manager.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

func newStore(cfg *config.Config) (storage.ConversationStore, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return storagesqlite.New(cfg.Storage.SQLite.Path)
	case "memory", "":
		return storagememory.New(), nil
	default: // "none"
		return nil, nil
	}
}

func newPublisher(cfg *config.Config, store storage.ConversationStore, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.Events.Type {
	case "amqp":
		return eventsamqp.New(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange, logger)
	case "direct", "":
		eventStore, ok := store.(storage.EventStore)
		if !ok {
			return nil, nil
		}
		return eventsdirect.NewPublisher(eventStore)
	default: // "none"
		return nil, nil
	}
}
