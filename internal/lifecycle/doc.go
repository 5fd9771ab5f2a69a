// Package lifecycle owns the radio service lifecycle. A single
// Controller serializes enable and disable transitions, powers the
// protocol stack on exactly once per process, and never powers it back
// off.
package lifecycle
