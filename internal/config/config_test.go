package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error loading defaults: %v", err)
	}
	if cfg.ClockMode != ClockModeReal {
		t.Fatalf("expected default clock mode real, got %q", cfg.ClockMode)
	}
	if cfg.HistoryMode != HistoryModeAppend {
		t.Fatalf("expected default history mode append, got %q", cfg.HistoryMode)
	}
	if cfg.RunInterval != 15*time.Minute {
		t.Fatalf("expected default run interval 15m, got %v", cfg.RunInterval)
	}
	if cfg.ClampNegative {
		t.Fatalf("expected clamp_negative to default to false")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		t.Fatalf("default thresholds should validate: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "blank-database", key: "database.path", value: "  "},
		{name: "unknown-clock-mode", key: "clock.mode", value: "sundial"},
		{name: "unknown-history-mode", key: "history.mode", value: "truncate"},
		{name: "bad-threshold", key: "scoring.threshold_c2", value: "lots"},
		{name: "unordered-thresholds", key: "scoring.threshold_c3", value: "1"},
		{name: "hour-out-of-range", key: "scheduler.run_at_hour", value: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.value)
			if _, err := Load(v); err == nil {
				t.Fatalf("expected error for %s=%v", tt.key, tt.value)
			}
		})
	}
}

func TestVirtualMultiplier(t *testing.T) {
	cfg := AppConfig{VirtualSecondsPerDay: 20}
	if got := cfg.VirtualMultiplier(); got != 4320 {
		t.Fatalf("expected 20s virtual day to yield multiplier 4320, got %d", got)
	}
}

func TestLoadVirtualModeRequiresStatePath(t *testing.T) {
	v := NewViper()
	v.Set("clock.mode", ClockModeVirtual)
	v.Set("clock.virtual.state_path", " ")
	if _, err := Load(v); err == nil {
		t.Fatalf("expected error when virtual mode has no state path")
	}
}
