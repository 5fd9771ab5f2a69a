// Package stack defines the capability contract the link controller
// depends on: powering the protocol stack, broadcasting advertisements,
// terminating links, and the callback tables the stack invokes for
// connection and pairing events. Implementations live in subpackages
// (bluez for the production BlueZ binding, fake for tests).
package stack
