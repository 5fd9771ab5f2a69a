// Package state holds the three process-wide link flags shared between
// the lifecycle controller and the stack-driven callback processors.
package state
