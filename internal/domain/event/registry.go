package event

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEventType is returned when a caller names an event type tag
// that has never been registered (spec §4.1: "a registry miss on create is
// a caller error").
var ErrUnknownEventType = errors.New("event: unknown event type")

// NewPayload builds a zero-value Payload instance ready to be populated and
// validated for a given tag.
type NewPayload func() Payload

// Descriptor is the registration record for one event class: a tag (data,
// not a reflected class name — see spec §9's redesign note) and a factory
// for its zero-value payload.
type Descriptor struct {
	Tag        string
	NewPayload NewPayload
}

// Registry maps an event-type tag to its Descriptor. It is write-once at
// startup and read-many at runtime (spec §5), so the mutex only guards the
// registration window; steady-state lookups are cheap RLocks.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]Descriptor)}
}

// Register is idempotent: registering the same tag twice with an equivalent
// descriptor is a no-op, re-registering with a different factory overwrites
// it (process restarts and hot-reloaded plugins both register at startup
// before the first event of that type flows, per spec §4.1).
func (r *Registry) Register(tag string, newPayload NewPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[tag] = Descriptor{Tag: tag, NewPayload: newPayload}
}

// Lookup returns the Descriptor for tag, or ok=false if nothing is
// registered under it.
func (r *Registry) Lookup(tag string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[tag]
	return d, ok
}

// NewPayloadFor constructs a zero-value payload for tag, failing with
// ErrUnknownEventType if the tag was never registered.
func (r *Registry) NewPayloadFor(tag string) (Payload, error) {
	d, ok := r.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, tag)
	}
	return d.NewPayload(), nil
}

// Registered reports whether tag is currently registered (used by recovery
// to decide between "materialize" and "warn and skip" per spec §4.4).
func (r *Registry) Registered(tag string) bool {
	_, ok := r.Lookup(tag)
	return ok
}
