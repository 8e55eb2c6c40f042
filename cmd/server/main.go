// Package main is the entry point for the greeting-service HTTP server.
// In Go, the `main` package with a `main()` function is what gets executed.
// Unlike Ruby/JS, Go compiles to a single static binary — no runtime needed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/greeting-service/internal/config"
	"github.com/fleveque/greeting-service/internal/logging"
	"github.com/fleveque/greeting-service/internal/server"
	"github.com/fleveque/greeting-service/internal/storage"
)

func main() {
	// os.Exit ensures the process exits with a non-zero code on failure.
	// We call run() separately so deferred cleanup functions execute properly
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("GREETING_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Fail fast before anything binds or connects: a missing Datadog API key
	// must never degrade into a silently unexported log stream.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Set up structured logging: a console core teed with the Datadog export
	// core, so every record emitted anywhere in the process is shipped.
	logger, closeLogger, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// defer runs when the enclosing function returns — like Ruby's ensure or
	// a finally block. Great for cleanup. closeLogger flushes the export
	// queue and stops the shipping worker.
	defer closeLogger()

	// Storage is optional: with no database configured the service is just
	// the greeting endpoint. Provisioning happens out-of-band (greeting-cli).
	deps := server.Deps{}
	if cfg.Storage.DatabasePath != "" {
		db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		deps.Messages = storage.NewMessageRepository(db)
	}

	// Create and start the HTTP server
	srv := server.New(cfg, deps, logger)

	// Graceful shutdown: listen for SIGINT (Ctrl+C) or SIGTERM (docker stop).
	// Channels are Go's primary concurrency primitive — goroutines communicate
	// through channels instead of sharing memory.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine (lightweight thread managed by Go runtime).
	// The `go` keyword spawns a goroutine — it's like starting a background task.
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	logger.Info("greeting service started",
		zap.String("service", cfg.Datadog.Service),
		zap.String("env", cfg.Datadog.Env),
		zap.String("version", logging.Version),
	)

	// Block until we receive a signal or the server errors out.
	// select is like a switch for channels — it waits until one is ready.
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
