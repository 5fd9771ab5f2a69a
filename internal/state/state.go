package state

import "sync/atomic"

// Link holds the shared radio flags. Lifecycle operations are serialized
// by the controller's mutex; callback-context readers take direct atomic
// reads instead, tolerating a bounded staleness window and re-validating
// before acting. Each flag is a single word, so no reader ever observes a
// torn value.
type Link struct {
	stackPowered   atomic.Bool
	servicesActive atomic.Bool
	advertising    atomic.Bool
}

// Snapshot is a point-in-time copy of the flags.
type Snapshot struct {
	StackPowered   bool `json:"stackPowered"`
	ServicesActive bool `json:"servicesActive"`
	Advertising    bool `json:"advertising"`
}

// NewLink creates the flag set with everything off.
func NewLink() *Link {
	return &Link{}
}

// StackPowered reports whether the protocol stack has been initialized.
// Set at most once per process; never reset.
func (l *Link) StackPowered() bool {
	return l.stackPowered.Load()
}

// MarkStackPowered records the one-time stack initialization.
func (l *Link) MarkStackPowered() {
	l.stackPowered.Store(true)
}

// ServicesActive reports the application-level service switch.
func (l *Link) ServicesActive() bool {
	return l.servicesActive.Load()
}

// SetServicesActive toggles the application-level service switch.
func (l *Link) SetServicesActive(active bool) {
	l.servicesActive.Store(active)
}

// Advertising reports whether a broadcast is actually running.
func (l *Link) Advertising() bool {
	return l.advertising.Load()
}

// SetAdvertising records the broadcast state.
func (l *Link) SetAdvertising(on bool) {
	l.advertising.Store(on)
}

// Ready reports whether the preconditions for advertising hold.
func (l *Link) Ready() bool {
	return l.stackPowered.Load() && l.servicesActive.Load()
}

// Snapshot returns a copy of all three flags.
func (l *Link) Snapshot() Snapshot {
	return Snapshot{
		StackPowered:   l.stackPowered.Load(),
		ServicesActive: l.servicesActive.Load(),
		Advertising:    l.advertising.Load(),
	}
}
