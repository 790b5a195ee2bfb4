package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/danieldreier/mcp-vocab/internal/session"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvData, EnvBackend, EnvDSN, EnvSessionSize, EnvRequeue, EnvLogLevel, EnvMaintenanceAt} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "sqlite")
	t.Setenv(EnvData, "/tmp/vocab.db")
	t.Setenv(EnvSessionSize, "35")
	t.Setenv(EnvRequeue, "none")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMaintenanceAt, "04:15")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		DataPath:      "/tmp/vocab.db",
		Backend:       storage.BackendSQLite,
		SessionSize:   35,
		Requeue:       session.RequeueNone,
		LogLevel:      "debug",
		MaintenanceAt: "04:15",
	}, cfg)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	sc := cfg.SessionConfig()
	assert.Equal(t, 35, sc.SessionSize)
	assert.Equal(t, session.RequeueNone, sc.Requeue)
	assert.Equal(t, session.DefaultMaxRedrills, sc.MaxRedrills)

	assert.Equal(t, storage.Options{Backend: "sqlite", Path: "/tmp/vocab.db"}, cfg.StorageOptions())
}

func TestFromEnvBadSessionSize(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSessionSize, "twenty")
	_, err := FromEnv()
	assert.ErrorContains(t, err, EnvSessionSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "unknown backend", modify: func(c *Config) { c.Backend = "redis" }},
		{name: "postgres without dsn", modify: func(c *Config) { c.Backend = storage.BackendPostgres }},
		{name: "json without path", modify: func(c *Config) { c.DataPath = "" }},
		{name: "session too large", modify: func(c *Config) { c.SessionSize = session.MaxSessionSize + 1 }},
		{name: "session zero", modify: func(c *Config) { c.SessionSize = 0 }},
		{name: "bad requeue", modify: func(c *Config) { c.Requeue = "always" }},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "loud" }},
		{name: "bad maintenance time", modify: func(c *Config) { c.MaintenanceAt = "midnight" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Backend = storage.BackendPostgres
	cfg.DSN = "postgres://localhost/vocab"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvDSN)
	os.Unsetenv(EnvLogLevel)

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOCAB_DSN=file:test.db\nVOCAB_LOG_LEVEL=warn\n"), 0644))
	t.Setenv(EnvLogLevel, "error")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv(EnvDSN) })

	assert.Equal(t, "file:test.db", os.Getenv(EnvDSN))
	assert.Equal(t, "error", os.Getenv(EnvLogLevel), "variables already set win")
}
