// Package config loads the chanloop CLI configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/baxromumarov/chanloop"
)

type Config struct {
	Pool     PoolConfig     `yaml:"pool"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PoolConfig struct {
	Workers   int `yaml:"workers" validate:"min=0,max=1024"`
	MinIdleUS int `yaml:"min_idle_us" validate:"min=1"`
	MaxIdleUS int `yaml:"max_idle_us" validate:"gtefield=MinIdleUS"`
	MaxErrors int `yaml:"max_errors" validate:"min=0"`
}

type DispatchConfig struct {
	MinIdleUS   int `yaml:"min_idle_us" validate:"min=1"`
	MaxIdleUS   int `yaml:"max_idle_us" validate:"gtefield=MinIdleUS"`
	AsyncPollMS int `yaml:"async_poll_ms" validate:"min=1,max=60000"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			MinIdleUS: 1,
			MaxIdleUS: 1000,
		},
		Dispatch: DispatchConfig{
			MinIdleUS:   1,
			MaxIdleUS:   1000,
			AsyncPollMS: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path on top of [Default], applies
// environment variable overrides and validates the result. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors holds every failed rule of a [Config].
type ValidationErrors struct {
	Errors []FieldError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(messages, "; ")
}

// Validate checks every field rule.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationErrors{}
	for _, e := range fieldErrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   yamlPath(e.Namespace()),
			Message: formatValidationMessage(e),
		})
	}
	return out
}

// yamlPath turns "Config.Pool.MaxIdleUS" into "pool.max_idle_us".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", toSnakeCase(e.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	default:
		return fmt.Sprintf("failed %q rule", e.Tag())
	}
}

// applyEnvOverrides checks for environment variables with the CHANLOOP_ prefix.
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"CHANLOOP_POOL_WORKERS", &cfg.Pool.Workers},
		{"CHANLOOP_POOL_MAX_ERRORS", &cfg.Pool.MaxErrors},
		{"CHANLOOP_DISPATCH_ASYNC_POLL_MS", &cfg.Dispatch.AsyncPollMS},
	}
	for _, o := range ints {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", o.name, err)
		}
		*o.dst = n
	}

	if v := os.Getenv("CHANLOOP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CHANLOOP_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	return nil
}

// Options returns the pool options described by p.
func (p *PoolConfig) Options(logger *slog.Logger) []chanloop.PoolOption {
	return []chanloop.PoolOption{
		chanloop.WithPoolBackoff(usec(p.MinIdleUS), usec(p.MaxIdleUS)),
		chanloop.WithMaxErrors(p.MaxErrors),
		chanloop.WithPoolLogger(logger),
	}
}

// Options returns the dispatcher options described by d.
func (d *DispatchConfig) Options(logger *slog.Logger) []chanloop.DispatchOption {
	return []chanloop.DispatchOption{
		chanloop.WithDispatchBackoff(usec(d.MinIdleUS), usec(d.MaxIdleUS)),
		chanloop.WithAsyncPoll(d.AsyncPoll()),
		chanloop.WithDispatchLogger(logger),
	}
}

// AsyncPoll returns the async poll interval as a duration.
func (d *DispatchConfig) AsyncPoll() time.Duration {
	return time.Duration(d.AsyncPollMS) * time.Millisecond
}

func usec(n int) time.Duration {
	return time.Duration(n) * time.Microsecond
}

// SlogLevel maps the configured level name to a slog level.
func (l *LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a text or JSON slog logger writing to w.
func (l *LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
