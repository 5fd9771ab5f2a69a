// Package telemetry distributes link lifecycle events (service state,
// advertising, connections, pairing, faults) to SSE subscribers, with a
// bounded replay buffer and Last-Event-ID resume.
package telemetry
