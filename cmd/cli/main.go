// Package main provides the CLI tool for the greeting-service.
// Uses Cobra for command parsing — Cobra is the standard Go CLI framework
// (used by kubectl, docker, hugo, and many others).
//
// Run with: go run ./cmd/cli provision
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/greeting-service/internal/config"
	"github.com/fleveque/greeting-service/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// greeting-cli provision
// greeting-cli provision --database ./storage/greeting.db
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "greeting-cli",
		Short: "Greeting service CLI tools",
	}

	root.AddCommand(provisionCmd())
	return root
}

func provisionCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create and seed the messages table (idempotent)",
		// RunE returns an error (vs Run which doesn't). Cobra prints the error automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(dbPath)
		},
	}

	// Cobra flags: --database overrides the configured path
	cmd.Flags().StringVar(&dbPath, "database", "", "SQLite database path (defaults to storage.database_path from config)")
	return cmd
}

func runProvision(dbPath string) error {
	// Load config
	configPath := os.Getenv("GREETING_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if dbPath == "" {
		dbPath = cfg.Storage.DatabasePath
	}
	if dbPath == "" {
		return fmt.Errorf("no database path: pass --database or set storage.database_path")
	}

	// Set up logger (always use development mode for CLI)
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Provision is insert-if-absent on the primary key, so running this
	// against an already-seeded database is a no-op.
	if err := storage.Provision(db); err != nil {
		return err
	}

	logger.Info("database provisioned", zap.String("path", dbPath))
	return nil
}
