// Package config resolves runtime settings from defaults, a .env file and
// VOCAB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/danieldreier/mcp-vocab/internal/session"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// Environment variables read by FromEnv.
const (
	EnvData          = "VOCAB_DATA"
	EnvBackend       = "VOCAB_BACKEND"
	EnvDSN           = "VOCAB_DSN"
	EnvSessionSize   = "VOCAB_SESSION_SIZE"
	EnvRequeue       = "VOCAB_REQUEUE"
	EnvLogLevel      = "VOCAB_LOG_LEVEL"
	EnvMaintenanceAt = "VOCAB_MAINTENANCE_AT"
)

// Config holds everything the command line needs to assemble the engine.
type Config struct {
	DataPath      string
	Backend       string
	DSN           string
	SessionSize   int
	Requeue       session.RequeuePolicy
	LogLevel      string
	MaintenanceAt string
}

// Default returns the built-in settings: a JSON file in the working directory.
func Default() Config {
	return Config{
		DataPath:      "./vocab.json",
		Backend:       storage.BackendJSON,
		SessionSize:   session.DefaultSessionSize,
		Requeue:       session.RequeueOnAgain,
		LogLevel:      "info",
		MaintenanceAt: "00:05",
	}
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv starts from Default and applies any VOCAB_* variables that are set.
func FromEnv() (Config, error) {
	cfg := Default()
	if v := os.Getenv(EnvData); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv(EnvSessionSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvSessionSize, err)
		}
		cfg.SessionSize = n
	}
	if v := os.Getenv(EnvRequeue); v != "" {
		cfg.Requeue = session.RequeuePolicy(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvMaintenanceAt); v != "" {
		cfg.MaintenanceAt = v
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case storage.BackendJSON, storage.BackendSQLite:
		if c.DataPath == "" && c.DSN == "" {
			return fmt.Errorf("backend %s needs a data path", c.Backend)
		}
	case storage.BackendPostgres:
		if c.DSN == "" {
			return errors.New("backend postgres needs a DSN")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.SessionSize < 1 || c.SessionSize > session.MaxSessionSize {
		return fmt.Errorf("session size %d is outside [1,%d]", c.SessionSize, session.MaxSessionSize)
	}
	if _, err := session.ParseRequeuePolicy(string(c.Requeue)); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.MaintenanceAt); err != nil {
		return fmt.Errorf("maintenance time %q is not HH:MM", c.MaintenanceAt)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// SessionConfig returns the session settings derived from c.
func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.SessionSize = c.SessionSize
	sc.Requeue = c.Requeue
	return sc
}

// StorageOptions returns the options for storage.Open.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend: c.Backend,
		Path:    c.DataPath,
		DSN:     c.DSN,
	}
}
