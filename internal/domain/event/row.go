package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Row is the DB-row shape backing the single `event` table of spec §6.
// It is storage-agnostic; internal/store/postgres maps it onto a gorm
// model.
type Row struct {
	ID           int64
	EventType    string
	Payload      json.RawMessage
	TargetUserID int64
	Priority     Priority
	IsRead       bool
	CreatedAt    time.Time
	ExpiredAt    *time.Time
}

// ToStoreRow converts e to its row iff deliverable, per spec §4.1
// (to_store_row() -> row iff deliverable, else sentinel "skip"). The bool
// result is the "skip" sentinel.
func (e *Event) ToStoreRow() (Row, bool) {
	if !e.Deliverable() {
		return Row{}, false
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		// A payload that fails to marshal cannot be persisted; treat as
		// non-deliverable rather than writing a corrupt row.
		return Row{}, false
	}
	return Row{
		ID:           e.ID,
		EventType:    e.EventType,
		Payload:      payload,
		TargetUserID: e.TargetUserID,
		Priority:     e.Priority,
		IsRead:       e.IsRead,
		CreatedAt:    e.CreatedAt,
		ExpiredAt:    e.ExpiredAt,
	}, true
}

// FromStoreRow materializes an Event from a persisted Row using reg to
// resolve the payload schema. It returns ok=false ("skip") in three cases
// that spec §4.1/§4.4 treat identically at the call site but log
// differently: the row is no longer deliverable, its event_type is
// unregistered, or its payload fails to decode.
func FromStoreRow(row Row, reg *Registry, logger *slog.Logger) (*Event, bool) {
	payload, err := reg.NewPayloadFor(row.EventType)
	if err != nil {
		if logger != nil {
			logger.Warn("recovery: unregistered event type, leaving row for a future deploy",
				"event_type", row.EventType, "event_id", row.ID)
		}
		return nil, false
	}
	if err := json.Unmarshal(row.Payload, payload); err != nil {
		if logger != nil {
			logger.Error("recovery: payload decode failed", "event_type", row.EventType,
				"event_id", row.ID, "error", err)
		}
		return nil, false
	}
	e := &Event{
		ID:           row.ID,
		EventType:    row.EventType,
		Payload:      payload,
		TargetUserID: row.TargetUserID,
		Priority:     row.Priority,
		IsRead:       row.IsRead,
		CreatedAt:    row.CreatedAt,
		ExpiredAt:    row.ExpiredAt,
	}
	if !e.Deliverable() {
		return nil, false
	}
	return e, true
}

// ValidateNew runs the payload's own validation plus the cross-field checks
// create_event performs before persisting (spec §4.4 step 1-3).
func ValidateNew(eventType string, payload Payload, targetUserID int64) error {
	if targetUserID <= 0 {
		return fmt.Errorf("event: target_userid must be set")
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("event %q: %w", eventType, err)
	}
	return nil
}
