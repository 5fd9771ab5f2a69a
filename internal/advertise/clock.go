package advertise

import "time"

// Clock abstracts deferred execution so the scheduler is testable without
// wall-clock delays.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable deferred call.
type Timer interface {
	// Stop cancels the call if it has not fired yet. Reports whether the
	// cancellation took effect.
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall-clock implementation backed by
// time.AfterFunc.
func SystemClock() Clock {
	return systemClock{}
}
