package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NOTIFY_BACKEND", "")
	t.Setenv("ENGINE_SWEEP_INTERVAL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.UsePostgres() {
		t.Error("expected in-memory storage without POSTGRES_DSN")
	}
	if cfg.Notification.Backend != NotifyBackendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Notification.Backend, NotifyBackendMemory)
	}
	if got := cfg.Engine.SweepInterval(); got != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://crm@localhost/crm")
	t.Setenv("NOTIFY_BACKEND", "REDIS")
	t.Setenv("ENGINE_SWEEP_INTERVAL_SECONDS", "5")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Postgres.UsePostgres() {
		t.Error("expected postgres storage with POSTGRES_DSN set")
	}
	if cfg.Notification.Backend != NotifyBackendRedis {
		t.Errorf("Backend = %q, want %q", cfg.Notification.Backend, NotifyBackendRedis)
	}
	if got := cfg.Engine.SweepInterval(); got != 5*time.Second {
		t.Errorf("SweepInterval = %v, want 5s", got)
	}
	if got := cfg.App.Addr(); got != "0.0.0.0:9090" {
		t.Errorf("Addr = %q, want 0.0.0.0:9090", got)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("NOTIFY_BACKEND", "kafka")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown notification backend")
	}
}

func TestSweepIntervalFloor(t *testing.T) {
	t.Parallel()

	if got := (EngineConfig{SweepIntervalSeconds: 0}).SweepInterval(); got != time.Second {
		t.Errorf("SweepInterval = %v, want 1s", got)
	}
}
