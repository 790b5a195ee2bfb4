package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danieldreier/mcp-vocab/internal/config"
	"github.com/danieldreier/mcp-vocab/internal/session"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Spaced-repetition vocabulary trainer",
	Long: "vocab schedules vocabulary reviews with SM-2 and Leitner boxes and " +
		"serves study sessions to MCP clients over stdio.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("data", "", "Path to the JSON or SQLite data file (overrides "+config.EnvData+")")
	flags.String("backend", "", "Storage backend: json, sqlite or postgres (overrides "+config.EnvBackend+")")
	flags.String("dsn", "", "Database connection string (overrides "+config.EnvDSN+")")
	flags.String("log-level", "", "Log level: debug, info, warn, error (overrides "+config.EnvLogLevel+")")
	flags.String("env-file", ".env", "Environment file loaded before reading "+config.EnvData+" and friends")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(statsCmd)
}

// resolveConfig loads the env file, reads the environment and applies any
// flags set on the command line, in that order of increasing priority.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.DataPath = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		cfg.DSN = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if f := cmd.Flags().Lookup("session-size"); f != nil && f.Changed {
		cfg.SessionSize, _ = cmd.Flags().GetInt("session-size")
	}
	if v, _ := cmd.Flags().GetString("requeue"); v != "" {
		cfg.Requeue = session.RequeuePolicy(v)
	}
	return cfg, cfg.Validate()
}

// newLogger builds the development logger. It writes to stderr, which keeps
// stdout free for the MCP protocol.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// app bundles what every subcommand needs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.Storage
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	level, _ := cfg.Level()
	logger, err := newLogger(level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	opts := cfg.StorageOptions()
	opts.Logger = logger
	store, err := storage.Open(contextOf(cmd), opts)
	if err != nil {
		logger.Error("Failed to open storage", zap.String("backend", cfg.Backend), zap.Error(err))
		return nil, err
	}
	logger.Debug("Storage opened", zap.String("backend", cfg.Backend), zap.String("path", cfg.DataPath))
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (rt *app) close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("Failed to close storage", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
