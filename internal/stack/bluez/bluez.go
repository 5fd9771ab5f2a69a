// Package bluez implements the protocol stack contract over the BlueZ
// D-Bus API. It drives org.bluez.Adapter1 for power and bonds,
// LEAdvertisingManager1 for broadcasting, Device1 for link termination,
// and an exported Agent1 for passkey display.
//
// BlueZ hides parts of the callback surface behind its D-Bus API:
// connection parameter negotiation is not exposed, so ParamRequest and
// ParamUpdated are never invoked; failed connection attempts are not
// reported, so Connected is only ever delivered with a nil error; and
// pairing failures surface only as an agent Cancel, so the binding
// raises AuthCancel but never PairingFailed.
package bluez

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/stack"
)

const (
	bluezService       = "org.bluez"
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	agentManagerIface  = "org.bluez.AgentManager1"
	advManagerIface    = "org.bluez.LEAdvertisingManager1"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"

	agentPath = dbus.ObjectPath("/com/linkcontrol/blc/agent")
	advPath   = dbus.ObjectPath("/com/linkcontrol/blc/advertisement")
)

// Compile-time assertion that Binding implements the stack contract
var _ stack.Stack = (*Binding)(nil)

// normalize maps BlueZ bus errors to container codes through the bluez
// token table.
func normalize(err error) error {
	return stack.NormalizeVendorErrorWithVendor(err, nil, "bluez")
}

// Binding implements stack.Stack over the BlueZ system bus.
type Binding struct {
	mu sync.Mutex

	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	deviceName  string

	connHandler stack.ConnectionHandler
	pairHandler stack.PairingHandler

	advertising   bool
	agentExported bool

	signals chan *dbus.Signal
	done    chan struct{}

	log *logrus.Entry
}

// New creates a binding against the given adapter (e.g. "hci0").
// The system bus connection is established immediately; the adapter is
// powered in PowerOn.
func New(adapter, deviceName string, log *logrus.Entry) (*Binding, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system D-Bus: %w", err)
	}
	return &Binding{
		conn:        conn,
		adapterPath: dbus.ObjectPath("/org/bluez/" + adapter),
		deviceName:  deviceName,
		done:        make(chan struct{}),
		log:         log,
	}, nil
}

// PowerOn powers the adapter, registers the pairing agent, and starts
// the signal loop feeding the callback tables.
func (b *Binding) PowerOn(ctx context.Context) error {
	adapter := b.conn.Object(bluezService, b.adapterPath)

	call := adapter.CallWithContext(ctx, propertiesIface+".Set", 0,
		adapterIface, "Powered", dbus.MakeVariant(true))
	if err := call.Err; err != nil {
		return normalize(fmt.Errorf("failed to power adapter: %w", err))
	}

	if err := adapter.CallWithContext(ctx, propertiesIface+".Set", 0,
		adapterIface, "Alias", dbus.MakeVariant(b.deviceName)).Err; err != nil {
		b.log.WithError(err).Warn("Failed to set adapter alias")
	}

	if err := b.registerAgent(ctx); err != nil {
		return err
	}
	if err := b.subscribeSignals(); err != nil {
		return err
	}

	b.log.WithField("adapter", string(b.adapterPath)).Info("BlueZ adapter powered")
	return nil
}

// Disconnect terminates the link to peer. BlueZ chooses the HCI reason
// itself; the requested reason is recorded for the log trail only.
func (b *Binding) Disconnect(ctx context.Context, peer stack.Peer, reason stack.DisconnectReason) error {
	path := b.devicePath(peer)
	b.log.WithFields(logrus.Fields{
		"peer":   peer.String(),
		"reason": reason.String(),
	}).Info("Disconnecting peer")

	device := b.conn.Object(bluezService, path)
	if err := device.CallWithContext(ctx, deviceIface+".Disconnect", 0).Err; err != nil {
		return normalize(fmt.Errorf("failed to disconnect %s: %w", peer, err))
	}
	return nil
}

// ClearBonds removes every device object the adapter holds, dropping
// stored pairing credentials with them.
func (b *Binding) ClearBonds(ctx context.Context) error {
	objects, err := b.managedObjects(ctx)
	if err != nil {
		return err
	}

	adapter := b.conn.Object(bluezService, b.adapterPath)
	for path, ifaces := range objects {
		if _, ok := ifaces[deviceIface]; !ok {
			continue
		}
		if !strings.HasPrefix(string(path), string(b.adapterPath)+"/") {
			continue
		}
		if err := adapter.CallWithContext(ctx, adapterIface+".RemoveDevice", 0, path).Err; err != nil {
			return normalize(fmt.Errorf("failed to remove device %s: %w", path, err))
		}
	}
	return nil
}

// LoadSettings is a no-op; BlueZ persists adapter settings itself.
func (b *Binding) LoadSettings(ctx context.Context) error {
	b.log.Debug("BlueZ manages persisted settings, nothing to load")
	return nil
}

// RegisterConnectionHandler installs the connection callback table.
func (b *Binding) RegisterConnectionHandler(h stack.ConnectionHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connHandler = h
	return nil
}

// UnregisterConnectionHandler removes the connection callback table.
func (b *Binding) UnregisterConnectionHandler() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connHandler = nil
}

// RegisterPairingHandler installs the authentication callback table.
func (b *Binding) RegisterPairingHandler(h stack.PairingHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairHandler = h
	return nil
}

// UnregisterPairingHandler removes the authentication callback table.
func (b *Binding) UnregisterPairingHandler() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairHandler = nil
}

// Close stops the signal loop and releases the bus connection.
func (b *Binding) Close() error {
	close(b.done)
	return b.conn.Close()
}

// devicePath maps a peer address to its BlueZ object path, e.g.
// AA:BB:CC:DD:EE:FF under hci0 becomes /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func (b *Binding) devicePath(peer stack.Peer) dbus.ObjectPath {
	mac := strings.ReplaceAll(strings.ToUpper(string(peer)), ":", "_")
	return dbus.ObjectPath(string(b.adapterPath) + "/dev_" + mac)
}

// pathToPeer converts a BlueZ device object path back to an address.
func pathToPeer(path dbus.ObjectPath) stack.Peer {
	parts := strings.Split(string(path), "/")
	last := parts[len(parts)-1]
	if !strings.HasPrefix(last, "dev_") {
		return ""
	}
	return stack.Peer(strings.ReplaceAll(strings.TrimPrefix(last, "dev_"), "_", ":"))
}

func (b *Binding) managedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := b.conn.Object(bluezService, "/")
	if err := root.CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, normalize(fmt.Errorf("failed to enumerate BlueZ objects: %w", err))
	}
	return objects, nil
}
