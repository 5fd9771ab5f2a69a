package pairing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/state"
	"github.com/link-control/blc/internal/telemetry"
)

// Display is the surface a passkey is shown on. Implementations must be
// safe for calls from the stack's notification context.
type Display interface {
	// Init prepares the display. Called once before any other method.
	Init() error

	// SetCode sets the six-digit passkey text to present.
	SetCode(code string)

	// Show makes the passkey visible.
	Show()

	// Hide removes the passkey from view. Safe to call when nothing is
	// shown.
	Hide()
}

// Disconnector terminates a link with a reason code.
type Disconnector interface {
	Disconnect(ctx context.Context, peer stack.Peer, reason stack.DisconnectReason) error
}

// Compile-time assertion that Coordinator implements the callback table
var _ stack.PairingHandler = (*Coordinator)(nil)

// Coordinator implements stack.PairingHandler. It shows the comparison
// passkey while pairing is in flight and tears the link down on
// authentication failure.
type Coordinator struct {
	flags   *state.Link
	display Display
	links   Disconnector
	cfg     *config.Timing
	hub     *telemetry.Hub
	log     *logrus.Entry
}

// NewCoordinator creates the pairing coordinator and initializes the
// display.
func NewCoordinator(flags *state.Link, display Display, links Disconnector, cfg *config.Timing, hub *telemetry.Hub, log *logrus.Entry) (*Coordinator, error) {
	if err := display.Init(); err != nil {
		return nil, fmt.Errorf("pairing display init: %w", err)
	}
	return &Coordinator{
		flags:   flags,
		display: display,
		links:   links,
		cfg:     cfg,
		hub:     hub,
		log:     log,
	}, nil
}

// FormatPasskey renders a stack passkey as the zero-padded six-digit
// decimal string shown to the user.
func FormatPasskey(passkey uint32) string {
	return fmt.Sprintf("%06d", passkey)
}

// PasskeyDisplay presents the numeric comparison code for peer. A
// disabled service surfaces no UI, so the code is dropped while services
// are inactive.
func (c *Coordinator) PasskeyDisplay(peer stack.Peer, passkey uint32) {
	if !c.flags.ServicesActive() {
		c.log.WithField("peer", peer.String()).Warn("Ignoring passkey while services inactive")
		return
	}
	code := FormatPasskey(passkey)
	c.log.WithField("peer", peer.String()).Info("Displaying pairing passkey")
	c.display.SetCode(code)
	c.display.Show()
	c.publish("passkey-display", peer, map[string]interface{}{"passkey": code})
}

// AuthCancel hides the passkey after an aborted pairing attempt.
func (c *Coordinator) AuthCancel(peer stack.Peer) {
	c.log.WithField("peer", peer.String()).Warn("Pairing cancelled")
	c.display.Hide()
	c.publish("cancelled", peer, nil)
}

// PairingComplete hides the passkey once pairing finishes.
func (c *Coordinator) PairingComplete(peer stack.Peer, bonded bool) {
	c.log.WithFields(logrus.Fields{
		"peer":   peer.String(),
		"bonded": bonded,
	}).Info("Pairing complete")
	c.display.Hide()
	c.publish("complete", peer, map[string]interface{}{"bonded": bonded})
}

// PairingFailed hides the passkey and, while services are active, tears
// the link down with an authentication failure reason. Disconnect
// failures are logged only.
func (c *Coordinator) PairingFailed(peer stack.Peer, reason stack.SecurityError) {
	c.log.WithFields(logrus.Fields{
		"peer":   peer.String(),
		"reason": uint8(reason),
	}).Warn("Pairing failed")
	c.display.Hide()
	c.publish("failed", peer, map[string]interface{}{"reason": uint8(reason)})

	if !c.flags.ServicesActive() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommandTimeoutDisconnect)
	defer cancel()
	if err := c.links.Disconnect(ctx, peer, stack.ReasonAuthFailure); err != nil {
		c.log.WithError(err).WithField("peer", peer.String()).Error("Failed to disconnect after pairing failure")
	}
}

func (c *Coordinator) publish(status string, peer stack.Peer, extra map[string]interface{}) {
	data := map[string]interface{}{
		"status": status,
		"peer":   peer.String(),
	}
	for k, v := range extra {
		data[k] = v
	}
	_ = c.hub.Publish(telemetry.Event{Type: telemetry.EventPairing, Data: data})
}
