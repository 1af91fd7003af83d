// Package main contains the entrypoint for the foodlens service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgard/foodlens/internal/config"
	"github.com/edgard/foodlens/internal/database"
	"github.com/edgard/foodlens/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "foodlens",
	Short:         "Food photo nutrition analysis over REST and Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, Telegram bot and scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze one image file, store the result and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, analyzeCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("foodlens exited with error", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info("Starting foodlens...", "addr", cfg.HTTP.Addr)
	return app.Run(cmd.Context())
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	core, err := newCore(cmd.Context(), cfg, log, nil)
	if err != nil {
		return err
	}
	defer core.Close()

	record, err := core.service.AnalyzeAndStore(cmd.Context(), data, filepath.Base(args[0]))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	database.CloseDB(db)
	log.Info("Migrations applied successfully", "driver", cfg.Database.Driver, "table", cfg.Database.Table)
	return nil
}
