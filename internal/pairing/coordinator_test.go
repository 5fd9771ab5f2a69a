package pairing

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/state"
)

type mockDisplay struct {
	mu      sync.Mutex
	initErr error
	inits   int
	codes   []string
	shows   int
	hides   int
}

func (m *mockDisplay) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

func (m *mockDisplay) SetCode(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
}

func (m *mockDisplay) Show() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows++
}

func (m *mockDisplay) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hides++
}

type mockDisconnector struct {
	mu    sync.Mutex
	calls []disconnectCall
	err   error
}

type disconnectCall struct {
	peer   stack.Peer
	reason stack.DisconnectReason
}

func (m *mockDisconnector) Disconnect(ctx context.Context, peer stack.Peer, reason stack.DisconnectReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, disconnectCall{peer: peer, reason: reason})
	return m.err
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestCoordinator(t *testing.T, flags *state.Link) (*Coordinator, *mockDisplay, *mockDisconnector) {
	t.Helper()
	display := &mockDisplay{}
	links := &mockDisconnector{}
	coord, err := NewCoordinator(flags, display, links, config.LoadBaseline(), nil, testLog())
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	return coord, display, links
}

func activeFlags() *state.Link {
	flags := state.NewLink()
	flags.MarkStackPowered()
	flags.SetServicesActive(true)
	return flags
}

func TestNewCoordinatorInitializesDisplay(t *testing.T) {
	_, display, _ := newTestCoordinator(t, activeFlags())
	if display.inits != 1 {
		t.Errorf("Expected one display init, got %d", display.inits)
	}
}

func TestNewCoordinatorPropagatesInitError(t *testing.T) {
	display := &mockDisplay{initErr: errors.New("no backing surface")}
	_, err := NewCoordinator(activeFlags(), display, &mockDisconnector{}, config.LoadBaseline(), nil, testLog())
	if err == nil {
		t.Fatal("Expected error when display init fails")
	}
}

func TestFormatPasskeyZeroPads(t *testing.T) {
	tests := []struct {
		passkey uint32
		want    string
	}{
		{0, "000000"},
		{42, "000042"},
		{999999, "999999"},
		{123456, "123456"},
	}
	for _, tt := range tests {
		if got := FormatPasskey(tt.passkey); got != tt.want {
			t.Errorf("FormatPasskey(%d) = %q, want %q", tt.passkey, got, tt.want)
		}
	}
}

func TestPasskeyDisplayShowsCode(t *testing.T) {
	coord, display, _ := newTestCoordinator(t, activeFlags())

	coord.PasskeyDisplay("AA:BB:CC:DD:EE:FF", 42)

	if len(display.codes) != 1 || display.codes[0] != "000042" {
		t.Errorf("Expected code 000042 set once, got %v", display.codes)
	}
	if display.shows != 1 {
		t.Errorf("Expected one show, got %d", display.shows)
	}
	if display.hides != 0 {
		t.Errorf("Expected no hide during display, got %d", display.hides)
	}
}

func TestPasskeyDisplayWhileInactiveIsNoop(t *testing.T) {
	flags := state.NewLink()
	flags.MarkStackPowered()
	coord, display, _ := newTestCoordinator(t, flags)

	coord.PasskeyDisplay("AA:BB:CC:DD:EE:FF", 42)

	if len(display.codes) != 0 {
		t.Errorf("Expected no code set while services inactive, got %v", display.codes)
	}
	if display.shows != 0 {
		t.Errorf("Expected no show while services inactive, got %d", display.shows)
	}
}

func TestPairingCompleteHidesDisplay(t *testing.T) {
	coord, display, links := newTestCoordinator(t, activeFlags())

	coord.PasskeyDisplay("AA:BB:CC:DD:EE:FF", 42)
	coord.PairingComplete("AA:BB:CC:DD:EE:FF", true)

	if display.hides != 1 {
		t.Errorf("Expected one hide, got %d", display.hides)
	}
	if len(links.calls) != 0 {
		t.Errorf("Expected no disconnect on successful pairing, got %d", len(links.calls))
	}
}

func TestAuthCancelHidesDisplay(t *testing.T) {
	coord, display, _ := newTestCoordinator(t, activeFlags())

	coord.PasskeyDisplay("AA:BB:CC:DD:EE:FF", 7)
	coord.AuthCancel("AA:BB:CC:DD:EE:FF")

	if display.hides != 1 {
		t.Errorf("Expected one hide on cancel, got %d", display.hides)
	}
}

func TestPairingFailedDisconnectsWhileActive(t *testing.T) {
	coord, display, links := newTestCoordinator(t, activeFlags())

	coord.PairingFailed("AA:BB:CC:DD:EE:FF", stack.SecurityError(0x04))

	if display.hides != 1 {
		t.Errorf("Expected display hidden on failure, got %d hides", display.hides)
	}
	if len(links.calls) != 1 {
		t.Fatalf("Expected one disconnect, got %d", len(links.calls))
	}
	if links.calls[0].reason != stack.ReasonAuthFailure {
		t.Errorf("Expected auth-failure reason, got %s", links.calls[0].reason)
	}
}

func TestPairingFailedWhileInactiveHidesOnly(t *testing.T) {
	flags := state.NewLink()
	flags.MarkStackPowered()
	coord, display, links := newTestCoordinator(t, flags)

	coord.PairingFailed("AA:BB:CC:DD:EE:FF", stack.SecurityError(0x04))

	if display.hides != 1 {
		t.Errorf("Expected display hidden, got %d hides", display.hides)
	}
	if len(links.calls) != 0 {
		t.Errorf("Expected no disconnect while inactive, got %d", len(links.calls))
	}
}

func TestPairingFailedToleratesDisconnectError(t *testing.T) {
	coord, _, links := newTestCoordinator(t, activeFlags())
	links.err = errors.New("org.bluez.Error.Failed")

	// Must not panic; the failure is logged only.
	coord.PairingFailed("AA:BB:CC:DD:EE:FF", stack.SecurityError(0x05))

	if len(links.calls) != 1 {
		t.Errorf("Expected the disconnect to be attempted, got %d", len(links.calls))
	}
}
