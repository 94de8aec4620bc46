package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected default addr %q", cfg.HTTP.Addr())
	}
	if cfg.Database.Driver != "memory" {
		t.Fatalf("unexpected default driver %q", cfg.Database.Driver)
	}
	if cfg.Redis.PostTTL != 30*time.Second {
		t.Fatalf("unexpected default post ttl %v", cfg.Redis.PostTTL)
	}
	if got := cfg.Auth.TokenList(); len(got) != 1 || got[0] != "dev-token" {
		t.Fatalf("unexpected default tokens %v", got)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("AUTH_TOKENS", "alpha, beta,,gamma")
	t.Setenv("SWEEP_SCHEDULE", "@every 5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("expected port override, got %d", cfg.HTTP.Port)
	}
	if got := cfg.Auth.TokenList(); len(got) != 3 || got[1] != "beta" {
		t.Fatalf("unexpected tokens %v", got)
	}
	if cfg.Sweep.Schedule != "@every 5m" {
		t.Fatalf("unexpected schedule %q", cfg.Sweep.Schedule)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskhub.yaml")
	body := []byte("http:\n  port: 7070\ndatabase:\n  driver: postgres\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("TASKHUB_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 7070 {
		t.Fatalf("expected yaml port override, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected yaml driver override, got %q", cfg.Database.Driver)
	}
	// Untouched sections keep their environment defaults.
	if cfg.HTTP.Host != "0.0.0.0" {
		t.Fatalf("expected default host, got %q", cfg.HTTP.Host)
	}
}
