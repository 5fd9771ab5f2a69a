// Package advertise owns the deferred advertising job: a single
// rearmable task that starts the broadcast after a settle delay and
// retries failed attempts on a fixed backoff while services remain
// active. It also defines the bit-exact advertisement payload.
package advertise
