package advertise

import (
	"github.com/google/uuid"

	"github.com/link-control/blc/internal/stack"
)

// Advertising data structure types.
const (
	adTypeFlags            = 0x01
	adTypeUUID16Complete   = 0x03
	adTypeUUID128Complete  = 0x07
	adTypeNameComplete     = 0x09
	adTypeManufacturerData = 0xff
)

// Flags byte: general discoverable, no classic BT.
const (
	flagGeneralDiscoverable = 0x02
	flagNoBREDR             = 0x04
)

// Current Time Service 16-bit UUID, part of the broadcast identity.
const currentTimeServiceUUID = 0x1805

// TimeSyncServiceUUID is the vendor-specific 128-bit time-sync service
// advertised alongside the standard identity.
var TimeSyncServiceUUID = uuid.MustParse("12345678-1234-5678-1234-56789abcdef0")

// manufacturerData is the scan-response marker: a placeholder company
// identifier, the "TS" (time sync) tag, and a version byte.
var manufacturerData = []byte{0x00, 0x00, 'T', 'S', 0x01}

// Payload builds the fixed advertisement and scan-response payloads for
// the given device name.
func Payload(deviceName string) stack.Advertisement {
	return stack.Advertisement{
		Data: []stack.Field{
			{Type: adTypeFlags, Data: []byte{flagGeneralDiscoverable | flagNoBREDR}},
			{Type: adTypeUUID16Complete, Data: uuid16LE(currentTimeServiceUUID)},
			{Type: adTypeUUID128Complete, Data: uuid128LE(TimeSyncServiceUUID)},
		},
		ScanResponse: []stack.Field{
			{Type: adTypeNameComplete, Data: []byte(deviceName)},
			{Type: adTypeManufacturerData, Data: manufacturerData},
		},
	}
}

// uuid16LE encodes a 16-bit UUID in on-air (little-endian) byte order.
func uuid16LE(u uint16) []byte {
	return []byte{byte(u), byte(u >> 8)}
}

// uuid128LE encodes a 128-bit UUID in on-air (little-endian) byte order.
func uuid128LE(u uuid.UUID) []byte {
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = u[15-i]
	}
	return out
}
