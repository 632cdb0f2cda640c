package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/config"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hypercut",
	Short: "Hypercut - AI video editing orchestrator",
	Long: `Hypercut coordinates AI-driven video editing: it resolves workflow
templates into dependency graphs of tool calls, executes them with
maximum safe concurrency, and applies recovery and quality policies
around every call.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and wires the structured logger before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	slog.SetDefault(newLogger(cfg.Logging))
	return nil
}

// newLogger builds the process logger from config.
func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(policiesCmd)
	rootCmd.AddCommand(versionCmd)
}
