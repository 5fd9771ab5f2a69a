package bluez

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/link-control/blc/internal/stack"
)

const advertisementIface = "org.bluez.LEAdvertisement1"

// AD structure types understood by the payload translation.
const (
	adTypeUUID16Complete   = 0x03
	adTypeUUID128Complete  = 0x07
	adTypeNameComplete     = 0x09
	adTypeManufacturerData = 0xff
)

// advertisement is the exported LEAdvertisement1 object.
type advertisement struct{}

// Release is called by BlueZ when it drops the advertisement.
func (advertisement) Release() *dbus.Error {
	return nil
}

// StartAdvertising exports the payload as an LEAdvertisement1 object and
// registers it with the adapter's advertising manager. BlueZ owns the
// flags AD structure, so the payload's flags field is not translated.
func (b *Binding) StartAdvertising(ctx context.Context, adv stack.Advertisement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.advertising {
		return nil
	}

	if err := b.conn.Export(advertisement{}, advPath, advertisementIface); err != nil {
		return fmt.Errorf("failed to export advertisement: %w", err)
	}

	props, err := advertisementProperties(adv)
	if err != nil {
		return err
	}
	if _, err := prop.Export(b.conn, advPath, props); err != nil {
		return fmt.Errorf("failed to export advertisement properties: %w", err)
	}

	manager := b.conn.Object(bluezService, b.adapterPath)
	call := manager.CallWithContext(ctx, advManagerIface+".RegisterAdvertisement", 0,
		advPath, map[string]dbus.Variant{})
	if err := call.Err; err != nil {
		return normalize(fmt.Errorf("failed to register advertisement: %w", err))
	}

	b.advertising = true
	return nil
}

// StopAdvertising unregisters the exported advertisement.
func (b *Binding) StopAdvertising(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.advertising {
		return nil
	}

	manager := b.conn.Object(bluezService, b.adapterPath)
	call := manager.CallWithContext(ctx, advManagerIface+".UnregisterAdvertisement", 0, advPath)
	if err := call.Err; err != nil {
		return normalize(fmt.Errorf("failed to unregister advertisement: %w", err))
	}

	b.advertising = false
	return nil
}

// advertisementProperties translates the wire-level payload into the
// LEAdvertisement1 property map BlueZ expects.
func advertisementProperties(adv stack.Advertisement) (prop.Map, error) {
	var serviceUUIDs []string
	var localName string
	manufacturerData := map[uint16]dbus.Variant{}

	fields := make([]stack.Field, 0, len(adv.Data)+len(adv.ScanResponse))
	fields = append(fields, adv.Data...)
	fields = append(fields, adv.ScanResponse...)

	for _, f := range fields {
		switch f.Type {
		case adTypeUUID16Complete:
			for i := 0; i+1 < len(f.Data); i += 2 {
				u := binary.LittleEndian.Uint16(f.Data[i:])
				serviceUUIDs = append(serviceUUIDs, fmt.Sprintf("%08X-0000-1000-8000-00805F9B34FB", u))
			}
		case adTypeUUID128Complete:
			if len(f.Data) != 16 {
				return nil, fmt.Errorf("malformed 128-bit UUID field of %d bytes", len(f.Data))
			}
			serviceUUIDs = append(serviceUUIDs, uuid128FromLE(f.Data))
		case adTypeNameComplete:
			localName = string(f.Data)
		case adTypeManufacturerData:
			if len(f.Data) < 2 {
				return nil, fmt.Errorf("malformed manufacturer data field of %d bytes", len(f.Data))
			}
			company := binary.LittleEndian.Uint16(f.Data)
			manufacturerData[company] = dbus.MakeVariant(f.Data[2:])
		}
	}

	props := map[string]*prop.Prop{
		"Type":         {Value: "peripheral", Emit: prop.EmitTrue},
		"ServiceUUIDs": {Value: serviceUUIDs, Emit: prop.EmitTrue},
		"Discoverable": {Value: true, Emit: prop.EmitTrue},
		"Includes":     {Value: []string{}, Emit: prop.EmitTrue},
	}
	if localName != "" {
		props["LocalName"] = &prop.Prop{Value: localName, Emit: prop.EmitTrue}
	}
	if len(manufacturerData) > 0 {
		props["ManufacturerData"] = &prop.Prop{Value: manufacturerData, Emit: prop.EmitTrue}
	}

	return prop.Map{advertisementIface: props}, nil
}

// uuid128FromLE renders an on-air little-endian 128-bit UUID in the
// canonical string form BlueZ expects.
func uuid128FromLE(le []byte) string {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = le[15-i]
	}
	return fmt.Sprintf("%02X%02X%02X%02X-%02X%02X-%02X%02X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		be[0], be[1], be[2], be[3], be[4], be[5], be[6], be[7],
		be[8], be[9], be[10], be[11], be[12], be[13], be[14], be[15])
}
