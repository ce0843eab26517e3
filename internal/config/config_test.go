package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clearEnv pins every GALKIN_* variable the loader reads so tests are
// immune to the ambient environment. The loader treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GALKIN_CONFIG",
		"GALKIN_HTTP_ADDR",
		"GALKIN_AUTH_ENABLED",
		"GALKIN_AUTH_TOKEN",
		"GALKIN_POOL_WORKERS",
		"GALKIN_MAX_STARS",
		"GALKIN_MAX_BODY_BYTES",
		"GALKIN_RATE_PER_SECOND",
		"GALKIN_RATE_BURST",
		"GALKIN_TRUST_PROXY",
		"GALKIN_LOG_LEVEL",
		"GALKIN_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Auth.Enabled {
		t.Error("auth enabled by default")
	}
	if cfg.Pool.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (one per CPU)", cfg.Pool.Workers)
	}
	if cfg.Limits.MaxStars != 1_000_000 {
		t.Errorf("MaxStars = %d, want 1000000", cfg.Limits.MaxStars)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "galkin.yml")
	data := strings.Join([]string{
		"server:",
		"  addr: \":9090\"",
		"  read_timeout_seconds: 15",
		"  write_timeout_seconds: 60",
		"  idle_timeout_seconds: 90",
		"  shutdown_timeout_seconds: 10",
		"pool:",
		"  workers: 8",
		"limits:",
		"  max_stars: 50000",
		"  rate_per_second: 2.5",
		"log:",
		"  level: debug",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if got := cfg.Server.ReadTimeout().Seconds(); got != 15 {
		t.Errorf("ReadTimeout = %vs, want 15s", got)
	}
	if cfg.Pool.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Pool.Workers)
	}
	if cfg.Limits.MaxStars != 50000 {
		t.Errorf("MaxStars = %d, want 50000", cfg.Limits.MaxStars)
	}
	if cfg.Limits.RatePerSecond != 2.5 {
		t.Errorf("RatePerSecond = %v, want 2.5", cfg.Limits.RatePerSecond)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	// Fields the file omits keep their defaults.
	if cfg.Limits.MaxBodyBytes != 16<<20 {
		t.Errorf("MaxBodyBytes = %d, want default", cfg.Limits.MaxBodyBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml"), testLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GALKIN_HTTP_ADDR", ":7070")
	t.Setenv("GALKIN_AUTH_ENABLED", "true")
	t.Setenv("GALKIN_AUTH_TOKEN", "s3cret")
	t.Setenv("GALKIN_POOL_WORKERS", "12")
	t.Setenv("GALKIN_MAX_STARS", "not-a-number") // ignored with a warning
	t.Setenv("GALKIN_TRUST_PROXY", "1")

	cfg, err := Load("", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Server.Addr)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Token != "s3cret" {
		t.Errorf("Auth = %+v, want enabled with token", cfg.Auth)
	}
	if cfg.Pool.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Pool.Workers)
	}
	if cfg.Limits.MaxStars != 1_000_000 {
		t.Errorf("MaxStars = %d, want default after invalid override", cfg.Limits.MaxStars)
	}
	if !cfg.Limits.TrustProxy {
		t.Error("TrustProxy not applied")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{
			name: "auth enabled without token",
			env:  map[string]string{"GALKIN_AUTH_ENABLED": "true"},
		},
		{
			name: "bad log level",
			yaml: "log:\n  level: verbose\n",
		},
		{
			name: "bad addr",
			env:  map[string]string{"GALKIN_HTTP_ADDR": "not an address"},
		},
		{
			name: "zero read timeout",
			yaml: "server:\n  read_timeout_seconds: 0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "galkin.yml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := Load(path, testLogger()); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}
	for _, tt := range tests {
		got := LogConfig{Level: tt.level}.SlogLevel().String()
		if got != tt.want {
			t.Errorf("SlogLevel(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
