package config

import "time"

// Timing maps the container's timing and policy constants.
type Timing struct {
	// Advertising scheduler policy. The settle delay is the deliberate
	// pause before the first broadcast attempt; the retry backoff is the
	// fixed spacing between failed attempts. Retries have no maximum
	// count: they continue while services remain active.
	AdvSettleDelay  time.Duration
	AdvRetryBackoff time.Duration

	// Teardown policy. Links are allowed to terminate naturally during
	// this linger instead of being force-disconnected, which is unsafe
	// on the reference radio controller.
	TeardownLinger time.Duration

	// Command timeout classes for blocking stack calls.
	CommandTimeoutPowerOn    time.Duration
	CommandTimeoutAdvStart   time.Duration
	CommandTimeoutAdvStop    time.Duration
	CommandTimeoutDisconnect time.Duration

	// Telemetry event buffer configuration.
	EventBufferSize      int
	EventBufferRetention time.Duration

	// Identity broadcast in the scan response.
	DeviceName string

	// LoadSettings controls whether stack-persisted settings are loaded
	// during first-time bring-up.
	LoadSettings bool
}

// LoadBaseline returns the compiled-in baseline values.
func LoadBaseline() *Timing {
	return &Timing{
		// First attempt after 100ms settle, retries every 5s.
		AdvSettleDelay:  100 * time.Millisecond,
		AdvRetryBackoff: 5 * time.Second,

		TeardownLinger: 100 * time.Millisecond,

		// Power-on is the slowest stack call by far.
		CommandTimeoutPowerOn:    10 * time.Second,
		CommandTimeoutAdvStart:   5 * time.Second,
		CommandTimeoutAdvStop:    5 * time.Second,
		CommandTimeoutDisconnect: 5 * time.Second,

		EventBufferSize:      50,
		EventBufferRetention: 1 * time.Hour,

		DeviceName:   "blc-wearable",
		LoadSettings: true,
	}
}
