// Package connection implements the per-user, per-stream delivery side of
// the engine: bounded mailboxes, the per-user cell that groups a user's
// streams, and the ConnectionManager that owns all cells.
package connection

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/notifyhub/sse-engine/internal/domain/event"
)

// Mailbox is a bounded FIFO queue for one SSE stream. Unlike the teacher's
// registry.Cell, which drops the *incoming* event when its channel-backed
// mailbox is full, spec invariant 5 requires dropping the *oldest* queued
// event to make room for the newest — a plain buffered channel can't express
// that, so Mailbox keeps its own slice-backed ring guarded by a mutex and a
// single-slot notify channel to wake a blocked reader.
type Mailbox struct {
	mu      sync.Mutex
	buf     []*event.Event
	cap     int
	notify  chan struct{}
	closed  bool
	dropped uint64
}

// NewMailbox returns a Mailbox that holds at most capacity events.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox{
		buf:    make([]*event.Event, 0, capacity),
		cap:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// Put enqueues ev, evicting the oldest queued event first if the mailbox is
// already at capacity. It reports whether an eviction occurred so callers
// can account dropped events (spec §4.4 delivery metrics).
func (m *Mailbox) Put(ev *event.Event) (evicted bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if len(m.buf) >= m.cap {
		m.buf = m.buf[1:]
		atomic.AddUint64(&m.dropped, 1)
		evicted = true
	}
	m.buf = append(m.buf, ev)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return evicted
}

// Get blocks until an event is available, the mailbox is closed, or ctx is
// done. A closed, drained mailbox returns ok=false immediately.
func (m *Mailbox) Get(ctx context.Context) (ev *event.Event, ok bool) {
	for {
		m.mu.Lock()
		if len(m.buf) > 0 {
			ev = m.buf[0]
			m.buf[0] = nil
			m.buf = m.buf[1:]
			m.mu.Unlock()
			return ev, true
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Len reports how many events are currently queued.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf)
}

// DroppedCount reports the number of evictions since the mailbox was
// created.
func (m *Mailbox) DroppedCount() uint64 {
	return atomic.LoadUint64(&m.dropped)
}

// Close marks the mailbox closed and wakes any blocked reader. Queued
// events already in the buffer are still drained by Get until exhausted.
func (m *Mailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}
