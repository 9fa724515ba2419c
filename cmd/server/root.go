package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/quote-board/internal/config"
	"github.com/iliyamo/quote-board/internal/database"
	"github.com/iliyamo/quote-board/internal/logging"
)

var (
	// Global flags
	logLevel string
)

// rootCmd runs the API server when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "quote-board",
	Short: "Quote board API - share quotes and vote on them",
	Long: `quote-board serves a JSON API where users share short quotes and
up- or downvote each other's quotes.

Subcommands:
  serve    - Run the HTTP API (default)
  migrate  - Apply pending schema migrations
  consume  - Append published domain events to the activity log`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
}

// loadConfig loads configuration and sets up logging for every command.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.Setup(cfg.LogLevel, cfg.Env)
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return database.Open(ctx, cfg.DSN(), database.Pool{
		MaxOpen: cfg.DBMaxOpenConns,
		MaxIdle: cfg.DBMaxIdleConns,
	})
}
