// Package api exposes the HTTP control surface: link status, enable and
// disable actions, and the telemetry event stream. All responses use a
// unified envelope with a correlation ID.
package api
