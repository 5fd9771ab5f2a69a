package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/link-control/blc/internal/stack"
)

// subscribeSignals installs the match rules for device state changes and
// starts the dispatch loop.
func (b *Binding) subscribeSignals() error {
	rules := []string{
		"type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged'",
		"type='signal',interface='org.freedesktop.DBus.ObjectManager',member='InterfacesRemoved'",
		"type='signal',interface='org.freedesktop.DBus.ObjectManager',member='InterfacesAdded'",
	}
	for _, rule := range rules {
		if err := b.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return normalize(fmt.Errorf("failed to add D-Bus match rule: %w", err))
		}
	}

	b.signals = make(chan *dbus.Signal, 32)
	b.conn.Signal(b.signals)
	go b.signalLoop()
	return nil
}

// signalLoop dispatches BlueZ signals to the registered callback tables.
// Pairing outcomes ride on the Device1 Paired property; link state rides
// on Connected.
func (b *Binding) signalLoop() {
	for {
		select {
		case <-b.done:
			return
		case sig, ok := <-b.signals:
			if !ok {
				return
			}
			if sig == nil || len(sig.Body) == 0 {
				continue
			}
			switch sig.Name {
			case propertiesIface + ".PropertiesChanged":
				b.handlePropertiesChanged(sig)
			case objectManagerIface + ".InterfacesRemoved":
				b.handleInterfacesRemoved(sig)
			}
		}
	}
}

func (b *Binding) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if !strings.HasPrefix(string(sig.Path), string(b.adapterPath)+"/dev_") {
		return
	}
	peer := pathToPeer(sig.Path)

	if v, exists := changed["Connected"]; exists {
		connected, _ := v.Value().(bool)
		if h := b.connectionHandler(); h != nil {
			if connected {
				h.Connected(peer, nil)
			} else {
				// BlueZ does not expose the HCI reason over D-Bus.
				h.Disconnected(peer, stack.ReasonUnspecified)
			}
		}
	}

	if v, exists := changed["Paired"]; exists {
		paired, _ := v.Value().(bool)
		if paired {
			if h := b.pairingHandler(); h != nil {
				bonded := true
				if bv, ok := changed["Bonded"]; ok {
					bonded, _ = bv.Value().(bool)
				}
				h.PairingComplete(peer, bonded)
			}
		}
	}
}

// handleInterfacesRemoved maps a dropped device object to the recycle
// notification: BlueZ reclaimed the connection resources.
func (b *Binding) handleInterfacesRemoved(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].([]string)
	if !ok {
		return
	}
	if !strings.HasPrefix(string(path), string(b.adapterPath)+"/dev_") {
		return
	}
	for _, iface := range ifaces {
		if iface == deviceIface {
			if h := b.connectionHandler(); h != nil {
				h.Recycled()
			}
			return
		}
	}
}
