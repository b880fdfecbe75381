package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got %s", cfg.Format)
	}
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Init(Config{Level: "not-a-level", Format: "json", TimeFormat: "2006"})

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level on invalid input, got %v", zerolog.GlobalLevel())
	}
}

func TestInit_ParsesLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Init(Config{Level: "debug", Format: "console", TimeFormat: "2006"})

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", zerolog.GlobalLevel())
	}
}
