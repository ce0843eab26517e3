// Package config loads server configuration from an optional YAML file with
// GALKIN_* environment overrides on top. Defaults are usable as-is, so a
// bare `galkin` starts a working server on :8080.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Pool   PoolConfig   `yaml:"pool"`
	Limits LimitsConfig `yaml:"limits"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr                   string `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds" validate:"gt=0"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds" validate:"gt=0"`
	IdleTimeoutSeconds     int    `yaml:"idle_timeout_seconds" validate:"gt=0"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" validate:"gt=0"`
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
}

type PoolConfig struct {
	// Workers is the transform pool size; 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`
}

type LimitsConfig struct {
	MaxBodyBytes  int64   `yaml:"max_body_bytes" validate:"gt=0"`
	MaxStars      int     `yaml:"max_stars" validate:"gt=0"`
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gt=0"`
	Burst         int     `yaml:"burst" validate:"gt=0"`
	TrustProxy    bool    `yaml:"trust_proxy"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// SlogLevel maps the configured level name onto slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
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

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    30,
			IdleTimeoutSeconds:     120,
			ShutdownTimeoutSeconds: 5,
		},
		Limits: LimitsConfig{
			MaxBodyBytes:  16 << 20,
			MaxStars:      1_000_000,
			RatePerSecond: 10,
			Burst:         20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (path argument
// or GALKIN_CONFIG, skipped when neither is set), then environment
// overrides, then validation.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GALKIN_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		logger.Info("loaded config file", "path", path)
	}

	applyEnv(&cfg, logger)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnv layers GALKIN_* variables over the current values. Invalid values
// are logged and skipped rather than failing startup; validation still runs
// on the final result.
func applyEnv(cfg *Config, logger *slog.Logger) {
	if v := os.Getenv("GALKIN_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("GALKIN_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GALKIN_AUTH_ENABLED value, keeping configured value", "value", v)
		} else {
			cfg.Auth.Enabled = enabled
		}
	}

	if v := os.Getenv("GALKIN_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	if v := os.Getenv("GALKIN_POOL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid GALKIN_POOL_WORKERS value, keeping configured value", "value", v, "configured", cfg.Pool.Workers)
		} else {
			cfg.Pool.Workers = n
		}
	}

	if v := os.Getenv("GALKIN_MAX_STARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GALKIN_MAX_STARS value, keeping configured value", "value", v, "configured", cfg.Limits.MaxStars)
		} else {
			cfg.Limits.MaxStars = n
		}
	}

	if v := os.Getenv("GALKIN_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			logger.Warn("invalid GALKIN_MAX_BODY_BYTES value, keeping configured value", "value", v, "configured", cfg.Limits.MaxBodyBytes)
		} else {
			cfg.Limits.MaxBodyBytes = n
		}
	}

	if v := os.Getenv("GALKIN_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid GALKIN_RATE_PER_SECOND value, keeping configured value", "value", v, "configured", cfg.Limits.RatePerSecond)
		} else {
			cfg.Limits.RatePerSecond = f
		}
	}

	if v := os.Getenv("GALKIN_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GALKIN_RATE_BURST value, keeping configured value", "value", v, "configured", cfg.Limits.Burst)
		} else {
			cfg.Limits.Burst = n
		}
	}

	if v := os.Getenv("GALKIN_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GALKIN_TRUST_PROXY value, keeping configured value", "value", v)
		} else {
			cfg.Limits.TrustProxy = trust
		}
	}

	if v := os.Getenv("GALKIN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("GALKIN_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
