// Package connevt reacts to connection events from the protocol stack.
// It applies the link admission policy (reject peers while services are
// inactive) and keeps the advertising scheduler in step with the link
// state.
package connevt
