package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chanloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Second, cfg.Dispatch.AsyncPoll())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
pool:
  workers: 8
  max_errors: 10
dispatch:
  async_poll_ms: 50
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.Workers)
	assert.Equal(t, 10, cfg.Pool.MaxErrors)
	assert.Equal(t, 1000, cfg.Pool.MaxIdleUS, "unset fields keep defaults")
	assert.Equal(t, 50*time.Millisecond, cfg.Dispatch.AsyncPoll())
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "pool: [not, a, map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHANLOOP_POOL_WORKERS", "3")
	t.Setenv("CHANLOOP_DISPATCH_ASYNC_POLL_MS", "25")
	t.Setenv("CHANLOOP_LOG_LEVEL", "WARN")
	t.Setenv("CHANLOOP_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "pool:\n  workers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pool.Workers, "environment wins over the file")
	assert.Equal(t, 25, cfg.Dispatch.AsyncPollMS)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverrideNotANumber(t *testing.T) {
	t.Setenv("CHANLOOP_POOL_WORKERS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANLOOP_POOL_WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Pool.Workers = -1 }, "pool.workers"},
		{"too many workers", func(c *Config) { c.Pool.Workers = 5000 }, "pool.workers"},
		{"zero idle minimum", func(c *Config) { c.Pool.MinIdleUS = 0 }, "pool.min_idle_us"},
		{"max below min", func(c *Config) { c.Dispatch.MaxIdleUS = 0 }, "dispatch.max_idle_us"},
		{"zero async poll", func(c *Config) { c.Dispatch.AsyncPollMS = 0 }, "dispatch.async_poll_ms"},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.NotEmpty(t, verrs.Errors)
			assert.Equal(t, tt.field, verrs.Errors[0].Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "must be one of [text json]")
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "workers", toSnakeCase("Workers"))
	assert.Equal(t, "max_idle_us", toSnakeCase("MaxIdleUS"))
	assert.Equal(t, "async_poll_ms", toSnakeCase("AsyncPollMS"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	l := LoggingConfig{Level: "warn", Format: "json"}
	logger := l.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("n", 1))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"n":1`)

	buf.Reset()
	l = LoggingConfig{Level: "debug", Format: "text"}
	l.NewLogger(&buf).Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestOptions(t *testing.T) {
	cfg := Default()
	logger := slog.Default()
	assert.Len(t, cfg.Pool.Options(logger), 3)
	assert.Len(t, cfg.Dispatch.Options(logger), 3)
}
