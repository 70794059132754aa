package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDeliverable(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name string
		ev   Event
		want bool
	}{
		{"unread, no expiry", Event{}, true},
		{"unread, not yet expired", Event{ExpiredAt: &future}, true},
		{"unread, expired", Event{ExpiredAt: &past}, false},
		{"read", Event{IsRead: true}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ev.Deliverable(); got != c.want {
				t.Fatalf("Deliverable() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestSSEFrame(t *testing.T) {
	ev := &Event{
		ID:        7,
		EventType: "SystemNotification",
		Priority:  PriorityNormal,
		Payload:   &SystemNotificationPayload{Title: "hi", Message: "there"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	frame, err := ev.SSEFrame()
	if err != nil {
		t.Fatalf("SSEFrame: %v", err)
	}

	want := "event: SystemNotification\ndata: "
	if string(frame[:len(want)]) != want {
		t.Fatalf("frame prefix = %q, want %q", frame[:len(want)], want)
	}
	if string(frame[len(frame)-2:]) != "\n\n" {
		t.Fatalf("frame must end with a blank line, got %q", frame)
	}

	var wire map[string]any
	line := frame[len(want) : len(frame)-2]
	if err := json.Unmarshal(line, &wire); err != nil {
		t.Fatalf("data line is not valid JSON: %v", err)
	}
}

func TestHeartbeatFrame(t *testing.T) {
	want := "event: heartbeat\ndata: {\"status\":\"heartbeat\"}\n\n"
	if string(HeartbeatFrame()) != want {
		t.Fatalf("HeartbeatFrame() = %q, want %q", HeartbeatFrame(), want)
	}
}

func TestRoundTrip_StoreRow(t *testing.T) {
	reg := NewRegistry()
	reg.Register("SystemNotification", func() Payload { return &SystemNotificationPayload{} })

	now := time.Now().UTC().Truncate(time.Second)
	expiry := now.Add(time.Hour)
	original := &Event{
		EventType:    "SystemNotification",
		Payload:      &SystemNotificationPayload{Title: "hi", Message: "there"},
		TargetUserID: 42,
		Priority:     PriorityHigh,
		CreatedAt:    now,
		ExpiredAt:    &expiry,
	}

	row, ok := original.ToStoreRow()
	if !ok {
		t.Fatalf("ToStoreRow() reported non-deliverable for a fresh event")
	}
	row.ID = 99

	restored, ok := FromStoreRow(row, reg, nil)
	if !ok {
		t.Fatalf("FromStoreRow() reported skip for a valid row")
	}

	if restored.EventType != original.EventType {
		t.Fatalf("event_type mismatch: got %q want %q", restored.EventType, original.EventType)
	}
	if restored.Priority != original.Priority {
		t.Fatalf("priority mismatch: got %v want %v", restored.Priority, original.Priority)
	}
	if restored.TargetUserID != original.TargetUserID {
		t.Fatalf("target_userid mismatch: got %d want %d", restored.TargetUserID, original.TargetUserID)
	}
	if !restored.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at mismatch: got %v want %v", restored.CreatedAt, original.CreatedAt)
	}
	if restored.ExpiredAt == nil || !restored.ExpiredAt.Equal(*original.ExpiredAt) {
		t.Fatalf("expired_at mismatch: got %v want %v", restored.ExpiredAt, original.ExpiredAt)
	}
	gotPayload, ok := restored.Payload.(*SystemNotificationPayload)
	if !ok || *gotPayload != *original.Payload.(*SystemNotificationPayload) {
		t.Fatalf("payload mismatch: got %+v want %+v", restored.Payload, original.Payload)
	}
}

func TestToStoreRow_SkipsNonDeliverable(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	ev := &Event{EventType: "SystemNotification", ExpiredAt: &past}
	if _, ok := ev.ToStoreRow(); ok {
		t.Fatalf("an already-expired event must not convert to a store row")
	}
}

func TestFromStoreRow_UnregisteredTypeSkips(t *testing.T) {
	reg := NewRegistry()
	row := Row{ID: 1, EventType: "NoSuchType", CreatedAt: time.Now()}
	if _, ok := FromStoreRow(row, reg, nil); ok {
		t.Fatalf("an unregistered event_type must be skipped, not materialised")
	}
}
