// Package display publishes pairing passkey visibility to the telemetry
// stream. It is the headless rendition of the wearable's pairing modal:
// operators and companion UIs observe the code over SSE instead of a
// panel.
package display

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/telemetry"
)

// Telemetry shows pairing codes by publishing passkey events.
type Telemetry struct {
	mu      sync.Mutex
	code    string
	visible bool

	hub *telemetry.Hub
	log *logrus.Entry
}

// NewTelemetry creates the telemetry-backed display.
func NewTelemetry(hub *telemetry.Hub, log *logrus.Entry) *Telemetry {
	return &Telemetry{hub: hub, log: log}
}

// Init prepares the display.
func (d *Telemetry) Init() error {
	return nil
}

// SetCode stages the passkey text to present.
func (d *Telemetry) SetCode(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.code = code
}

// Show publishes the staged passkey.
func (d *Telemetry) Show() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = true
	d.log.Info("Showing pairing code")
	_ = d.hub.Publish(telemetry.Event{
		Type: telemetry.EventPairing,
		Data: map[string]interface{}{
			"status":  "code-visible",
			"passkey": d.code,
		},
	})
}

// Hide retracts a shown passkey. Safe to call when nothing is shown.
func (d *Telemetry) Hide() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible {
		return
	}
	d.visible = false
	d.code = ""
	d.log.Info("Hiding pairing code")
	_ = d.hub.Publish(telemetry.Event{
		Type: telemetry.EventPairing,
		Data: map[string]interface{}{"status": "code-hidden"},
	})
}

// Visible reports whether a code is currently shown.
func (d *Telemetry) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}
