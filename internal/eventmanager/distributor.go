package eventmanager

import (
	"context"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
)

// runDistributor is the single background worker of spec §4.4: it blocks on
// the central queue with a short timeout, discards anything no longer
// deliverable, and fans each surviving event out to every live mailbox of
// its target user. A panic or error in one iteration is logged and the loop
// continues — it never terminates except on shutdown.
func (m *Manager) runDistributor() {
	defer close(m.distributorDone)

	for {
		select {
		case <-m.shutdownCh:
			m.drainQueue()
			return
		case ev := <-m.queue:
			m.distributeOne(ev)
		case <-time.After(m.distributorPollTimeout):
			// Periodic wake with nothing queued; lets the loop notice
			// shutdownCh promptly even under a idle queue, same as the
			// "blocking-with-timeout" poll spec §5 calls for.
		}
	}
}

// drainQueue empties whatever is left queued when shutdown begins, handing
// each still-deliverable event to whichever of its user's mailboxes are
// still open. Nothing is re-stored: CreateEvent always persists first, so
// every queued stored event already has its row (spec §4.4 Shutdown step 2).
func (m *Manager) drainQueue() {
	for {
		select {
		case ev := <-m.queue:
			if ev.Deliverable() {
				m.distributeOne(ev)
			}
		default:
			return
		}
	}
}

func (m *Manager) distributeOne(ev *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("eventmanager: distributor iteration panicked", "panic", r)
		}
	}()
	if !ev.Deliverable() {
		return
	}
	mailboxes := m.conns.GetUserStreams(ev.TargetUserID)
	m.distribute(ev, mailboxes)
}

// distribute is the mailbox write policy of spec §4.4: non-blocking put
// into every snapshot mailbox, falling back to drop-oldest-then-put when a
// mailbox is already full. It never marks the store row read — "read" is an
// explicit user action.
func (m *Manager) distribute(ev *event.Event, mailboxes []*connection.Mailbox) {
	for _, mb := range mailboxes {
		evicted := mb.Put(ev.Clone())
		if evicted {
			if mi := m.metrics.Load(); mi != nil {
				mi.MailboxEvictions.Add(context.Background(), 1)
			}
		}
	}
}
