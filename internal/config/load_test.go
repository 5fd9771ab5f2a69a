package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBaseline(t *testing.T) {
	config := LoadBaseline()

	if config.AdvSettleDelay != 100*time.Millisecond {
		t.Errorf("Expected settle delay 100ms, got %v", config.AdvSettleDelay)
	}
	if config.AdvRetryBackoff != 5*time.Second {
		t.Errorf("Expected retry backoff 5s, got %v", config.AdvRetryBackoff)
	}
	if config.TeardownLinger != 100*time.Millisecond {
		t.Errorf("Expected teardown linger 100ms, got %v", config.TeardownLinger)
	}
	if config.EventBufferSize != 50 {
		t.Errorf("Expected event buffer size 50, got %d", config.EventBufferSize)
	}
	if config.DeviceName == "" {
		t.Error("Expected non-empty default device name")
	}
	if !config.LoadSettings {
		t.Error("Expected settings loading enabled by default")
	}

	if err := ValidateTiming(config); err != nil {
		t.Errorf("Baseline must validate, got %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BLC_TIMING_ADV_SETTLE_DELAY", "250ms")
	t.Setenv("BLC_TIMING_ADV_RETRY_BACKOFF", "10s")
	t.Setenv("BLC_TIMING_EVENT_BUFFER_SIZE", "100")
	t.Setenv("BLC_DEVICE_NAME", "bench-unit")
	t.Setenv("BLC_LOAD_SETTINGS", "false")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.AdvSettleDelay != 250*time.Millisecond {
		t.Errorf("Expected settle delay 250ms, got %v", config.AdvSettleDelay)
	}
	if config.AdvRetryBackoff != 10*time.Second {
		t.Errorf("Expected retry backoff 10s, got %v", config.AdvRetryBackoff)
	}
	if config.EventBufferSize != 100 {
		t.Errorf("Expected event buffer size 100, got %d", config.EventBufferSize)
	}
	if config.DeviceName != "bench-unit" {
		t.Errorf("Expected device name bench-unit, got %s", config.DeviceName)
	}
	if config.LoadSettings {
		t.Error("Expected settings loading disabled via env")
	}
}

func TestLoadRejectsInvalidEnvDuration(t *testing.T) {
	t.Setenv("BLC_TIMING_ADV_SETTLE_DELAY", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid duration override")
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"advSettleDelay": "50ms",
		"deviceName": "watch-7",
		"eventBufferSize": 25
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	file, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("loadFromFile() failed: %v", err)
	}

	merged := mergeTimingConfigs(LoadBaseline(), file)
	if merged.AdvSettleDelay != 50*time.Millisecond {
		t.Errorf("Expected settle delay 50ms, got %v", merged.AdvSettleDelay)
	}
	if merged.DeviceName != "watch-7" {
		t.Errorf("Expected device name watch-7, got %s", merged.DeviceName)
	}
	if merged.EventBufferSize != 25 {
		t.Errorf("Expected event buffer size 25, got %d", merged.EventBufferSize)
	}
	// Untouched fields keep baseline values.
	if merged.AdvRetryBackoff != 5*time.Second {
		t.Errorf("Expected untouched retry backoff 5s, got %v", merged.AdvRetryBackoff)
	}
}

func TestValidateTiming(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Timing)
		wantErr bool
	}{
		{"baseline is valid", func(c *Timing) {}, false},
		{"nil config rejected", nil, true},
		{"zero settle delay rejected", func(c *Timing) { c.AdvSettleDelay = 0 }, true},
		{"backoff below settle rejected", func(c *Timing) { c.AdvRetryBackoff = c.AdvSettleDelay / 2 }, true},
		{"negative linger rejected", func(c *Timing) { c.TeardownLinger = -time.Second }, true},
		{"zero power-on timeout rejected", func(c *Timing) { c.CommandTimeoutPowerOn = 0 }, true},
		{"zero buffer size rejected", func(c *Timing) { c.EventBufferSize = 0 }, true},
		{"empty device name rejected", func(c *Timing) { c.DeviceName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var config *Timing
			if tt.mutate != nil {
				config = LoadBaseline()
				tt.mutate(config)
			}

			err := ValidateTiming(config)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
