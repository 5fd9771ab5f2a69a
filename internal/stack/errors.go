// Table-driven normalization of vendor stack errors to container codes.
// Unknown tokens map to INTERNAL; diagnostics are preserved on the wrapped
// error rather than guessed at.
package stack

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized container errors.
var (
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrBusy        = errors.New("BUSY")
	ErrAuthFailed  = errors.New("AUTH_FAILED")
	ErrInternal    = errors.New("INTERNAL")
)

// VendorMap defines the error token mapping for a specific vendor stack.
type VendorMap struct {
	Unavailable []string // Tokens that map to UNAVAILABLE
	Busy        []string // Tokens that map to BUSY
	AuthFailed  []string // Tokens that map to AUTH_FAILED
}

// VendorErrorMappings contains the deterministic error mapping tables for
// the stack bindings this container ships with. Add new vendor entries with
// specific token arrays; unknown tokens automatically map to INTERNAL.
var VendorErrorMappings = map[string]VendorMap{
	"bluez": {
		Unavailable: []string{
			"org.bluez.Error.NotReady",
			"org.bluez.Error.NotAvailable",
			"org.freedesktop.DBus.Error.ServiceUnknown",
			"org.freedesktop.DBus.Error.NoReply",
			"NOT_READY",
			"OFFLINE",
		},
		Busy: []string{
			"org.bluez.Error.InProgress",
			"org.bluez.Error.Busy",
			"org.bluez.Error.AlreadyExists",
			"OPERATION_IN_PROGRESS",
		},
		AuthFailed: []string{
			"org.bluez.Error.AuthenticationFailed",
			"org.bluez.Error.AuthenticationCanceled",
			"org.bluez.Error.AuthenticationRejected",
			"org.bluez.Error.AuthenticationTimeout",
		},
	},
	"generic": {
		Unavailable: []string{
			"UNAVAILABLE",
			"NOT_READY",
			"OFFLINE",
			"POWERED_OFF",
		},
		Busy: []string{
			"BUSY",
			"IN_PROGRESS",
			"RETRY",
			"ALREADY_EXISTS",
		},
		AuthFailed: []string{
			"AUTH_FAILED",
			"AUTHENTICATION",
			"PAIRING_FAILED",
		},
	},
}

// VendorError wraps a vendor stack error with its normalized code.
type VendorError struct {
	Code     error       // Normalized container code
	Original error       // Vendor error
	Details  interface{} // Vendor payload (opaque)
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// NormalizeVendorError maps vendor errors to container codes using the
// generic mapping table.
func NormalizeVendorError(vendorErr error, vendorPayload interface{}) error {
	return NormalizeVendorErrorWithVendor(vendorErr, vendorPayload, "generic")
}

// NormalizeVendorErrorWithVendor maps vendor errors using a specific vendor
// mapping table.
func NormalizeVendorErrorWithVendor(vendorErr error, vendorPayload interface{}, vendorID string) error {
	if vendorErr == nil {
		return nil
	}

	code := mapVendorErrorToCode(vendorErr.Error(), vendorID)

	return &VendorError{
		Code:     code,
		Original: vendorErr,
		Details:  vendorPayload,
	}
}

// mapVendorErrorToCode maps a vendor error message to a normalized code
// using table-driven matching.
func mapVendorErrorToCode(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range vendorMap.Unavailable {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrUnavailable
		}
	}

	for _, token := range vendorMap.Busy {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrBusy
		}
	}

	for _, token := range vendorMap.AuthFailed {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrAuthFailed
		}
	}

	// Unknown token maps to INTERNAL
	return ErrInternal
}
