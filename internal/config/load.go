package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load merges defaults from LoadBaseline() + env overrides (BLC_*) +
// optional config.json.
func Load() (*Timing, error) {
	config := LoadBaseline()

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Try to load from config.json if it exists
	if _, err := os.Stat("config.json"); err == nil {
		fileConfig, err := loadFromFile("config.json")
		if err != nil {
			return nil, fmt.Errorf("failed to load config.json: %w", err)
		}

		config = mergeTimingConfigs(config, fileConfig)
	}

	if err := ValidateTiming(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies BLC_* environment variables to the config.
func applyEnvOverrides(config *Timing) error {
	durations := map[string]*time.Duration{
		"BLC_TIMING_ADV_SETTLE_DELAY":       &config.AdvSettleDelay,
		"BLC_TIMING_ADV_RETRY_BACKOFF":      &config.AdvRetryBackoff,
		"BLC_TIMING_TEARDOWN_LINGER":        &config.TeardownLinger,
		"BLC_TIMING_TIMEOUT_POWER_ON":       &config.CommandTimeoutPowerOn,
		"BLC_TIMING_TIMEOUT_ADV_START":      &config.CommandTimeoutAdvStart,
		"BLC_TIMING_TIMEOUT_ADV_STOP":       &config.CommandTimeoutAdvStop,
		"BLC_TIMING_TIMEOUT_DISCONNECT":     &config.CommandTimeoutDisconnect,
		"BLC_TIMING_EVENT_BUFFER_RETENTION": &config.EventBufferRetention,
	}

	for key, target := range durations {
		if val := os.Getenv(key); val != "" {
			duration, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid duration in %s: %w", key, err)
			}
			*target = duration
		}
	}

	if val := os.Getenv("BLC_TIMING_EVENT_BUFFER_SIZE"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid integer in BLC_TIMING_EVENT_BUFFER_SIZE: %w", err)
		}
		config.EventBufferSize = size
	}

	if val := os.Getenv("BLC_DEVICE_NAME"); val != "" {
		config.DeviceName = val
	}

	if val := os.Getenv("BLC_LOAD_SETTINGS"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid boolean in BLC_LOAD_SETTINGS: %w", err)
		}
		config.LoadSettings = enabled
	}

	return nil
}

// fileTiming is the JSON shape of config.json. Durations are expressed as
// Go duration strings; zero values mean "keep the current setting".
type fileTiming struct {
	AdvSettleDelay           string `json:"advSettleDelay"`
	AdvRetryBackoff          string `json:"advRetryBackoff"`
	TeardownLinger           string `json:"teardownLinger"`
	CommandTimeoutPowerOn    string `json:"commandTimeoutPowerOn"`
	CommandTimeoutAdvStart   string `json:"commandTimeoutAdvStart"`
	CommandTimeoutAdvStop    string `json:"commandTimeoutAdvStop"`
	CommandTimeoutDisconnect string `json:"commandTimeoutDisconnect"`
	EventBufferSize          int    `json:"eventBufferSize"`
	EventBufferRetention     string `json:"eventBufferRetention"`
	DeviceName               string `json:"deviceName"`
	LoadSettings             *bool  `json:"loadSettings"`
}

// loadFromFile loads timing overrides from a JSON file.
func loadFromFile(path string) (*fileTiming, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var ft fileTiming
	if err := json.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &ft, nil
}

// mergeTimingConfigs overlays non-zero file values onto the base config.
func mergeTimingConfigs(base *Timing, file *fileTiming) *Timing {
	merged := *base

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{file.AdvSettleDelay, &merged.AdvSettleDelay},
		{file.AdvRetryBackoff, &merged.AdvRetryBackoff},
		{file.TeardownLinger, &merged.TeardownLinger},
		{file.CommandTimeoutPowerOn, &merged.CommandTimeoutPowerOn},
		{file.CommandTimeoutAdvStart, &merged.CommandTimeoutAdvStart},
		{file.CommandTimeoutAdvStop, &merged.CommandTimeoutAdvStop},
		{file.CommandTimeoutDisconnect, &merged.CommandTimeoutDisconnect},
		{file.EventBufferRetention, &merged.EventBufferRetention},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		if duration, err := time.ParseDuration(d.raw); err == nil {
			*d.target = duration
		}
	}

	if file.EventBufferSize > 0 {
		merged.EventBufferSize = file.EventBufferSize
	}
	if file.DeviceName != "" {
		merged.DeviceName = file.DeviceName
	}
	if file.LoadSettings != nil {
		merged.LoadSettings = *file.LoadSettings
	}

	return &merged
}
