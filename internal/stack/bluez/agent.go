package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/link-control/blc/internal/stack"
)

const agentIface = "org.bluez.Agent1"

// agent is the exported Agent1 object. BlueZ calls it for DisplayOnly
// pairing; everything else is rejected so the device never silently
// accepts an unauthenticated method.
type agent struct {
	binding *Binding
}

// DisplayPasskey forwards the passkey to the pairing handler. BlueZ may
// call this repeatedly as digits are entered on the peer; only the first
// call per pairing shows the code.
func (a agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	if entered > 0 {
		return nil
	}
	if h := a.binding.pairingHandler(); h != nil {
		h.PasskeyDisplay(pathToPeer(device), passkey)
	}
	return nil
}

// Cancel reports an aborted pairing attempt.
func (a agent) Cancel() *dbus.Error {
	if h := a.binding.pairingHandler(); h != nil {
		h.AuthCancel("")
	}
	return nil
}

// Release is called by BlueZ when the agent is unregistered.
func (a agent) Release() *dbus.Error {
	return nil
}

// RequestPasskey rejects keyboard-input pairing; this device only
// displays codes.
func (a agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	return 0, dbus.MakeFailedError(fmt.Errorf("passkey entry not supported"))
}

// RequestPinCode rejects legacy PIN pairing.
func (a agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	return "", dbus.MakeFailedError(fmt.Errorf("pin entry not supported"))
}

// registerAgent exports the Agent1 object and installs it as the
// default DisplayOnly agent.
func (b *Binding) registerAgent(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.agentExported {
		return nil
	}

	if err := b.conn.Export(agent{binding: b}, agentPath, agentIface); err != nil {
		return fmt.Errorf("failed to export pairing agent: %w", err)
	}

	manager := b.conn.Object(bluezService, "/org/bluez")
	call := manager.CallWithContext(ctx, agentManagerIface+".RegisterAgent", 0, agentPath, "DisplayOnly")
	if err := call.Err; err != nil {
		return normalize(fmt.Errorf("failed to register pairing agent: %w", err))
	}
	call = manager.CallWithContext(ctx, agentManagerIface+".RequestDefaultAgent", 0, agentPath)
	if err := call.Err; err != nil {
		return normalize(fmt.Errorf("failed to set default pairing agent: %w", err))
	}

	b.agentExported = true
	return nil
}

func (b *Binding) pairingHandler() stack.PairingHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pairHandler
}

func (b *Binding) connectionHandler() stack.ConnectionHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connHandler
}
