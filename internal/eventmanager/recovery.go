package eventmanager

import (
	"context"
	"encoding/json"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
)

// recoverUserStream is spec §4.4 Recovery on reconnect: fetch userID's
// unread rows for eventType ordered priority desc/created_at asc. For each
// row: delete it if expired; warn and skip (leave in place) if its class is
// unregistered; otherwise materialise it with is_recovered=true into the
// freshly opened mailbox using the same write policy the distributor uses.
func (m *Manager) recoverUserStream(ctx context.Context, userID int64, eventType string, mailbox *connection.Mailbox) {
	rows, err := m.store.FetchUnreadByType(ctx, userID, eventType)
	if err != nil {
		m.log.Error("eventmanager: recovery fetch_unread_by_type failed",
			"user_id", userID, "event_type", eventType, "error", err)
		return
	}

	now := time.Now().UTC()
	for _, row := range rows {
		if row.ExpiredAt != nil && !row.ExpiredAt.After(now) {
			if derr := m.store.Delete(ctx, row.ID); derr != nil {
				m.log.Error("eventmanager: recovery delete of expired row failed",
					"event_id", row.ID, "error", derr)
			}
			continue
		}

		desc, ok := m.registry.Lookup(row.EventType)
		if !ok {
			m.log.Warn("eventmanager: recovery found unregistered event type, leaving row in place",
				"event_type", row.EventType, "event_id", row.ID)
			continue
		}

		payload := desc.NewPayload()
		if err := json.Unmarshal(row.Payload, payload); err != nil {
			m.log.Error("eventmanager: recovery payload decode failed",
				"event_type", row.EventType, "event_id", row.ID, "error", err)
			continue
		}

		ev := &event.Event{
			ID:           row.ID,
			EventType:    row.EventType,
			Payload:      payload,
			TargetUserID: row.TargetUserID,
			Priority:     row.Priority,
			IsRead:       row.IsRead,
			IsRecovered:  true,
			CreatedAt:    row.CreatedAt,
			ExpiredAt:    row.ExpiredAt,
		}
		m.distribute(ev, []*connection.Mailbox{mailbox})
		if mi := m.metrics.Load(); mi != nil {
			mi.EventsRecovered.Add(ctx, 1)
		}
	}
}
