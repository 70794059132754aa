package eventmanager

import "errors"

// Error kinds named in spec §7. They are sentinel values, not types: callers
// match with errors.Is.
var (
	// ErrUnknownEventType is returned by CreateEvent for an unregistered
	// tag.
	ErrUnknownEventType = errors.New("eventmanager: unknown event type")

	// ErrManagerNotRunning is returned by CreateEvent and
	// RegisterUserStream when the manager isn't in the RUNNING state
	// (SendRawEvent reports false instead).
	ErrManagerNotRunning = errors.New("eventmanager: not running")

	// ErrStoreFailure wraps an underlying persistence error surfaced to a
	// caller (never leaks event data per spec §7 propagation policy).
	ErrStoreFailure = errors.New("eventmanager: store failure")
)
