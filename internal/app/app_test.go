package app

import (
	"testing"

	"github.com/rs/zerolog"

	"scam-guard-service/internal/config"
)

func TestApplication_Lifecycle(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	a := New(&config.Config{})
	if a.Ready() {
		t.Error("expected not ready before Start")
	}
	if a.Uptime() != 0 {
		t.Errorf("expected zero uptime before Start, got %v", a.Uptime())
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time to be set")
	}

	a.Shutdown()
	if a.Ready() {
		t.Error("expected not ready after Shutdown")
	}
}

func TestApplication_EnvLevelOverride(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Setenv("ZEROLOG_LOG_LEVEL", "WARN")

	New(&config.Config{Observability: config.ObservabilityConfig{LogLevel: "debug"}})

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level from ZEROLOG_LOG_LEVEL, got %v", zerolog.GlobalLevel())
	}
}

func TestApplication_InvalidEnvLevelIgnored(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Setenv("ZEROLOG_LOG_LEVEL", "loud")

	New(&config.Config{Observability: config.ObservabilityConfig{LogLevel: "error"}})

	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Errorf("expected configured error level, got %v", zerolog.GlobalLevel())
	}
}
