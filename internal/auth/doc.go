// Package auth implements JWT bearer token verification for the control
// API. Tokens are HMAC-signed (HS256); scopes gate read, control, and
// telemetry access.
package auth
