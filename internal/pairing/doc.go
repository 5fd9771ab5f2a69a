// Package pairing coordinates passkey authentication events between the
// protocol stack and the local display surface.
package pairing
