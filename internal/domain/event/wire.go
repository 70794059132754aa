package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WireEvent is the exact shape spec §4.1 names for to_wire_dict():
// {id, event_type, priority (name), created_at (ISO-8601), payload (dict),
// is_recovered}.
type WireEvent struct {
	ID          int64    `json:"id"`
	EventType   string   `json:"event_type"`
	Priority    string   `json:"priority"`
	CreatedAt   string   `json:"created_at"`
	Payload     Payload  `json:"payload"`
	IsRecovered bool     `json:"is_recovered"`
}

// ToWireDict renders e into the wire struct and caches that struct on the
// event, so repeated calls on the same Event return the same value. The
// cache holds the struct, not encoded bytes: SSEFrame marshals it on every
// call, and Clone drops the cache, so each mailbox's copy builds its own.
func (e *Event) ToWireDict() *WireEvent {
	if e.wire != nil {
		return e.wire
	}
	w := &WireEvent{
		ID:          e.ID,
		EventType:   e.EventType,
		Priority:    e.Priority.String(),
		CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:     e.Payload,
		IsRecovered: e.IsRecovered,
	}
	e.wire = w
	return w
}

// SSEFrame renders the exact three-line SSE frame spec §6 specifies:
//
//	event: <event_type>\n
//	data: <JSON of to_wire_dict()>\n
//	\n
func (e *Event) SSEFrame() ([]byte, error) {
	data, err := json.Marshal(e.ToWireDict())
	if err != nil {
		return nil, fmt.Errorf("event: marshal wire dict: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(e.EventType)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// HeartbeatFrame is the idle keep-alive frame spec §6 names verbatim.
func HeartbeatFrame() []byte {
	return []byte("event: heartbeat\ndata: {\"status\":\"heartbeat\"}\n\n")
}
