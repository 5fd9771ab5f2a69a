// Package fake provides an in-memory protocol stack for tests and the
// fake run mode. It records every call, supports scripted error
// injection, and exposes the registered handlers so tests can drive
// connection and pairing events.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/link-control/blc/internal/stack"
)

// Compile-time assertion that FakeStack implements the stack contract
var _ stack.Stack = (*FakeStack)(nil)

// FakeStack implements stack.Stack for testing purposes.
type FakeStack struct {
	mu sync.Mutex

	// Current state
	powered     bool
	advertising bool
	lastAdv     stack.Advertisement

	// Call counters
	powerOnCalls   int
	advStartCalls  int
	advStopCalls   int
	clearBondCalls int
	loadCalls      int

	// Disconnect record
	disconnects []DisconnectRecord

	// Registered handlers
	connHandler stack.ConnectionHandler
	pairHandler stack.PairingHandler

	// Error simulation
	powerOnErr      error
	registerConnErr error
	registerPairErr error
	clearBondsErr   error
	loadSettingsErr error
	disconnectErr   error
	stopErr         error
	startErrs       []error // consumed one per StartAdvertising call
}

// DisconnectRecord captures one Disconnect call.
type DisconnectRecord struct {
	Peer   stack.Peer
	Reason stack.DisconnectReason
}

// NewFakeStack creates a fake stack with no scripted errors.
func NewFakeStack() *FakeStack {
	return &FakeStack{}
}

// PowerOn initializes the fake stack.
func (f *FakeStack) PowerOn(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.powerOnCalls++
	if f.powerOnErr != nil {
		return f.powerOnErr
	}
	f.powered = true
	return nil
}

// StartAdvertising begins broadcasting, failing with the next scripted
// error if one remains.
func (f *FakeStack) StartAdvertising(ctx context.Context, adv stack.Advertisement) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.advStartCalls++
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		if err != nil {
			return err
		}
	}
	if !f.powered {
		return fmt.Errorf("UNAVAILABLE: stack not powered")
	}
	f.advertising = true
	f.lastAdv = adv
	return nil
}

// StopAdvertising stops a running broadcast.
func (f *FakeStack) StopAdvertising(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.advStopCalls++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.advertising = false
	return nil
}

// Disconnect records the termination request.
func (f *FakeStack) Disconnect(ctx context.Context, peer stack.Peer, reason stack.DisconnectReason) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, DisconnectRecord{Peer: peer, Reason: reason})
	return f.disconnectErr
}

// ClearBonds removes stored pairing credentials.
func (f *FakeStack) ClearBonds(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearBondCalls++
	return f.clearBondsErr
}

// LoadSettings loads persisted stack settings.
func (f *FakeStack) LoadSettings(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	return f.loadSettingsErr
}

// RegisterConnectionHandler installs the connection callback table.
func (f *FakeStack) RegisterConnectionHandler(h stack.ConnectionHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerConnErr != nil {
		return f.registerConnErr
	}
	f.connHandler = h
	return nil
}

// UnregisterConnectionHandler removes the connection callback table.
func (f *FakeStack) UnregisterConnectionHandler() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connHandler = nil
}

// RegisterPairingHandler installs the authentication callback table.
func (f *FakeStack) RegisterPairingHandler(h stack.PairingHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerPairErr != nil {
		return f.registerPairErr
	}
	f.pairHandler = h
	return nil
}

// UnregisterPairingHandler removes the authentication callback table.
func (f *FakeStack) UnregisterPairingHandler() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairHandler = nil
}

// Helper methods for testing

// SetPowerOnError scripts a power-on failure.
func (f *FakeStack) SetPowerOnError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.powerOnErr = err
}

// SetRegisterConnectionError scripts a connection handler registration
// failure.
func (f *FakeStack) SetRegisterConnectionError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerConnErr = err
}

// SetRegisterPairingError scripts a pairing handler registration failure.
func (f *FakeStack) SetRegisterPairingError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerPairErr = err
}

// SetClearBondsError scripts a bond-clear failure.
func (f *FakeStack) SetClearBondsError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearBondsErr = err
}

// SetLoadSettingsError scripts a settings-load failure.
func (f *FakeStack) SetLoadSettingsError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadSettingsErr = err
}

// SetStopAdvertisingError scripts an advertising-stop failure.
func (f *FakeStack) SetStopAdvertisingError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopErr = err
}

// SetStartAdvertisingErrors scripts failures for the next len(errs)
// StartAdvertising calls, consumed in order.
func (f *FakeStack) SetStartAdvertisingErrors(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs = errs
}

// Powered reports whether PowerOn succeeded.
func (f *FakeStack) Powered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.powered
}

// Advertising reports whether a broadcast is running.
func (f *FakeStack) Advertising() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertising
}

// LastAdvertisement returns the most recently broadcast payload.
func (f *FakeStack) LastAdvertisement() stack.Advertisement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAdv
}

// PowerOnCalls returns the number of PowerOn invocations.
func (f *FakeStack) PowerOnCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.powerOnCalls
}

// StartAdvertisingCalls returns the number of StartAdvertising
// invocations.
func (f *FakeStack) StartAdvertisingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advStartCalls
}

// StopAdvertisingCalls returns the number of StopAdvertising invocations.
func (f *FakeStack) StopAdvertisingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advStopCalls
}

// ClearBondsCalls returns the number of ClearBonds invocations.
func (f *FakeStack) ClearBondsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearBondCalls
}

// LoadSettingsCalls returns the number of LoadSettings invocations.
func (f *FakeStack) LoadSettingsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

// Disconnects returns the recorded Disconnect calls.
func (f *FakeStack) Disconnects() []DisconnectRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DisconnectRecord, len(f.disconnects))
	copy(out, f.disconnects)
	return out
}

// ConnectionHandler returns the registered connection callback table, or
// nil.
func (f *FakeStack) ConnectionHandler() stack.ConnectionHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connHandler
}

// PairingHandler returns the registered authentication callback table,
// or nil.
func (f *FakeStack) PairingHandler() stack.PairingHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairHandler
}
