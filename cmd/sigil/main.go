package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/adapter/cli"
	"github.com/felixgeelhaar/sigil/internal/app"
	"github.com/felixgeelhaar/sigil/pkg/config"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// In development without .env, use defaults
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	// Update logger level based on config
	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	cli.SetLogger(logger)

	// Try to initialize the full container
	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			// In development, allow CLI to run without database
			cliApp = nil
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		// Start outbox processor in background (optional in CLI)
		if cfg.OutboxProcessorEnabled {
			if err := container.StartOutboxProcessor(ctx); err != nil {
				logger.Warn("failed to start outbox processor", "error", err)
			}
		} else {
			logger.Info("outbox processor disabled in CLI")
		}

		// Create CLI app with handlers
		cliApp = cli.NewApp(
			container.BindHandler,
			container.UnbindHandler,
			container.DeletePoolHandler,
			container.AutoBindHandler,
			container.UpdateProductHandler,
			container.GetEntitlementHandler,
			container.ListEntitlementsHandler,
			container.ListCertificatesHandler,
		)

		ownerID, err := uuid.Parse(cfg.OwnerID)
		if err != nil {
			logger.Error("invalid SIGIL_OWNER_ID", "error", err)
			os.Exit(1)
		}
		cliApp.SetCurrentOwnerID(ownerID)
	}

	cli.SetApp(cliApp)
	cli.Execute()
}
