package config

import "fmt"

// ValidateTiming enforces the container's timing validation rules.
func ValidateTiming(config *Timing) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateAdvertising(config); err != nil {
		return fmt.Errorf("advertising validation failed: %w", err)
	}

	if err := validateCommandTimeouts(config); err != nil {
		return fmt.Errorf("command timeout validation failed: %w", err)
	}

	if err := validateEventBuffer(config); err != nil {
		return fmt.Errorf("event buffer validation failed: %w", err)
	}

	if config.DeviceName == "" {
		return fmt.Errorf("device name cannot be empty")
	}

	return nil
}

// validateAdvertising validates the scheduler's timing parameters.
func validateAdvertising(config *Timing) error {
	if config.AdvSettleDelay <= 0 {
		return fmt.Errorf("advertising settle delay must be positive, got %v", config.AdvSettleDelay)
	}

	// The backoff spaces failed attempts; a backoff shorter than the
	// settle delay would retry faster than a fresh request starts.
	if config.AdvRetryBackoff < config.AdvSettleDelay {
		return fmt.Errorf("advertising retry backoff %v must be >= settle delay %v",
			config.AdvRetryBackoff, config.AdvSettleDelay)
	}

	if config.TeardownLinger < 0 {
		return fmt.Errorf("teardown linger must be non-negative, got %v", config.TeardownLinger)
	}

	return nil
}

// validateCommandTimeouts validates blocking stack call timeouts.
func validateCommandTimeouts(config *Timing) error {
	timeouts := []struct {
		name  string
		value interface{ Nanoseconds() int64 }
	}{
		{"power-on", config.CommandTimeoutPowerOn},
		{"adv-start", config.CommandTimeoutAdvStart},
		{"adv-stop", config.CommandTimeoutAdvStop},
		{"disconnect", config.CommandTimeoutDisconnect},
	}

	for _, t := range timeouts {
		if t.value.Nanoseconds() <= 0 {
			return fmt.Errorf("%s timeout must be positive, got %v", t.name, t.value)
		}
	}

	return nil
}

// validateEventBuffer validates the telemetry buffer configuration.
func validateEventBuffer(config *Timing) error {
	if config.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", config.EventBufferSize)
	}

	if config.EventBufferRetention <= 0 {
		return fmt.Errorf("event buffer retention must be positive, got %v", config.EventBufferRetention)
	}

	return nil
}
