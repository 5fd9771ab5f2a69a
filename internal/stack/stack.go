package stack

import (
	"context"
	"fmt"
)

// Peer identifies a remote device by address for logging and for issuing
// disconnect decisions. The controller never retains peers beyond the
// duration of a callback.
type Peer string

func (p Peer) String() string {
	if p == "" {
		return "<unknown>"
	}
	return string(p)
}

// DisconnectReason is the HCI reason code supplied when terminating a link.
type DisconnectReason uint8

const (
	// ReasonUnspecified is reported when the stack gives no reason.
	ReasonUnspecified DisconnectReason = 0x00

	// ReasonAuthFailure terminates a link after failed authentication.
	ReasonAuthFailure DisconnectReason = 0x05

	// ReasonRemoteUserTerminated rejects a link the local side does not
	// want, signalling a deliberate user-level termination to the peer.
	ReasonRemoteUserTerminated DisconnectReason = 0x13
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonAuthFailure:
		return "auth-failure"
	case ReasonRemoteUserTerminated:
		return "remote-user-terminated"
	case ReasonUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("0x%02x", uint8(r))
	}
}

// SecurityError is the stack's pairing failure code, passed through to the
// pairing handler unmodified.
type SecurityError uint8

// ConnParams carries a peer's connection parameter negotiation request.
type ConnParams struct {
	IntervalMin uint16
	IntervalMax uint16
	Latency     uint16
	Timeout     uint16
}

// Field is one advertising data structure (AD type plus payload bytes).
type Field struct {
	Type byte
	Data []byte
}

// Advertisement is the broadcast payload: primary advertising data plus
// scan response data.
type Advertisement struct {
	Data         []Field
	ScanResponse []Field
}

// ConnectionHandler is the connection event callback table. The stack
// invokes these on its own notification context, possibly concurrently
// with lifecycle operations.
type ConnectionHandler interface {
	// Connected reports a new link, or a failed connection attempt when
	// connErr is non-nil.
	Connected(peer Peer, connErr error)

	// Disconnected reports a lost link with the stack's reason code.
	Disconnected(peer Peer, reason DisconnectReason)

	// ParamRequest asks whether a peer's parameter negotiation should be
	// accepted.
	ParamRequest(peer Peer, params ConnParams) bool

	// ParamUpdated reports the parameters now in effect.
	ParamUpdated(peer Peer, interval, latency, timeout uint16)

	// Recycled reports that the stack has reclaimed connection resources.
	Recycled()
}

// PairingHandler is the authentication event callback table.
type PairingHandler interface {
	// PasskeyDisplay asks the local side to show a numeric comparison
	// code. Passkeys are bounded to 0-999999 by the stack.
	PasskeyDisplay(peer Peer, passkey uint32)

	// AuthCancel reports an aborted pairing attempt.
	AuthCancel(peer Peer)

	// PairingComplete reports a finished pairing, bonded or not.
	PairingComplete(peer Peer, bonded bool)

	// PairingFailed reports a failed pairing with the stack's reason.
	PairingFailed(peer Peer, reason SecurityError)
}

// Stack is the stable southbound contract for the protocol stack. The
// controller orchestrates its lifecycle but never implements the wireless
// protocol itself.
type Stack interface {
	// PowerOn initializes the underlying protocol stack. Called at most
	// once per process; powering the stack back off is not part of the
	// contract because it is unsafe on the reference hardware.
	PowerOn(ctx context.Context) error

	// StartAdvertising begins broadcasting the given payload.
	StartAdvertising(ctx context.Context, adv Advertisement) error

	// StopAdvertising stops a running broadcast.
	StopAdvertising(ctx context.Context) error

	// Disconnect requests termination of the link to peer with the given
	// reason code.
	Disconnect(ctx context.Context, peer Peer, reason DisconnectReason) error

	// ClearBonds removes stored pairing credentials for the default
	// local identity.
	ClearBonds(ctx context.Context) error

	// LoadSettings loads stack-persisted settings, when the deployment
	// carries any.
	LoadSettings(ctx context.Context) error

	// RegisterConnectionHandler installs the connection callback table.
	RegisterConnectionHandler(h ConnectionHandler) error

	// UnregisterConnectionHandler removes a previously installed
	// connection callback table.
	UnregisterConnectionHandler()

	// RegisterPairingHandler installs the authentication callback table.
	RegisterPairingHandler(h PairingHandler) error

	// UnregisterPairingHandler removes a previously installed
	// authentication callback table.
	UnregisterPairingHandler()
}
