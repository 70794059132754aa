package connection

import (
	"time"

	"github.com/google/uuid"
)

// stream is one admitted mailbox plus the bookkeeping the ConnectionManager
// needs to enforce the per-user cap and the event-type index (spec §3
// ConnectionTable).
type stream struct {
	id          uuid.UUID
	eventType   string
	mailbox     *Mailbox
	connectedAt time.Time
}

// cell groups every stream belonging to one user. Unlike the teacher's
// registry.Cell, a cell here is a plain data grouping, not an actor with its
// own goroutine and inbound channel: spec §4.3 has a single process-wide
// distributor pushing directly into mailboxes, so there is no per-user loop
// to run — the concurrency boundary is the ConnectionManager's lock, not a
// mailbox-per-actor message pump.
type cell struct {
	userID  int64
	streams map[uuid.UUID]*stream
}

func newCell(userID int64) *cell {
	return &cell{userID: userID, streams: make(map[uuid.UUID]*stream)}
}

// oldest returns the stream with the smallest connectedAt, or nil if the
// cell holds none. Ties are broken arbitrarily (map iteration order), which
// is fine: the spec only requires strict oldest-first, and admission times
// come from time.Now(), which in practice never ties.
func (c *cell) oldest() *stream {
	var best *stream
	for _, s := range c.streams {
		if best == nil || s.connectedAt.Before(best.connectedAt) {
			best = s
		}
	}
	return best
}
