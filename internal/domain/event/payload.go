package event

import (
	"encoding/json"
	"fmt"
)

// Payload is a type-specific, JSON round-trippable structured value (spec
// §3). Concrete payload types implement Validate so the registry can reject
// malformed construction requests (generalizing
// original_source/funlab/sse/enhanced_sse.py's EventValidator.validate_event
// field-presence check into a per-type method instead of one dict-shaped
// validator).
type Payload interface {
	// Validate reports a caller error (missing/invalid fields), never a
	// system error.
	Validate() error
}

// SystemNotificationPayload is the generic "title + message" notification
// shape named in spec §3.
type SystemNotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (p *SystemNotificationPayload) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("system_notification: title is required")
	}
	if p.Message == "" {
		return fmt.Errorf("system_notification: message is required")
	}
	return nil
}

// AlertPayload models an operational alert distinct from a routine
// notification (supplements spec.md's single example payload with a second
// concrete type, so the registry holds more than one event class).
type AlertPayload struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

func (p *AlertPayload) Validate() error {
	if p.Code == "" {
		return fmt.Errorf("alert: code is required")
	}
	return nil
}

// RawPayload wraps an already-encoded JSON payload, used by the ephemeral
// (send_raw_event) path, which shares the wire shape with stored events but
// is never validated against a registered schema (spec §4.4 Ephemeral
// path).
type RawPayload json.RawMessage

func (p RawPayload) Validate() error { return nil }

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}
