// Package event defines the typed, user-targeted messages the delivery
// engine stores and fans out, and the process-wide registry of event
// classes that know how to build and validate them.
package event

import "time"

// Priority orders events during recovery (priority desc, created_at asc).
// It is a recovery ordering only — the runtime distributor is plain FIFO.
type Priority int32

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// ParsePriority maps a wire priority name back to a Priority, defaulting to
// NORMAL for unknown values (matches the REST handler's "priority (name),
// default NORMAL" contract in spec §6).
func ParsePriority(name string) Priority {
	switch name {
	case "LOW":
		return PriorityLow
	case "HIGH":
		return PriorityHigh
	case "CRITICAL":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// Event is the in-memory record delivered to subscribers (spec §3).
type Event struct {
	// ID is 0 until the Store assigns one on first persist.
	ID           int64
	EventType    string
	Payload      Payload
	TargetUserID int64
	Priority     Priority
	IsRead       bool
	IsRecovered  bool
	CreatedAt    time.Time
	ExpiredAt    *time.Time

	wire *WireEvent
}

// IsExpired reports whether the event carries an expiry that has passed.
func (e *Event) IsExpired() bool {
	return e.ExpiredAt != nil && time.Now().UTC().After(*e.ExpiredAt)
}

// Deliverable is invariant 1 of spec §3: an event is deliverable iff it is
// unread and unexpired.
func (e *Event) Deliverable() bool {
	return !e.IsRead && !e.IsExpired()
}

// Clone returns a shallow copy, used when the same logical event is handed
// to several mailboxes so each can carry its own recovered/wire-cache state
// independently.
func (e *Event) Clone() *Event {
	cp := *e
	cp.wire = nil
	return &cp
}
