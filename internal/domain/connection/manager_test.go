package connection

import (
	"context"
	"testing"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/event"
)

func mkEvent(id int64) *event.Event {
	return &event.Event{ID: id, EventType: "SystemNotification", TargetUserID: 1}
}

func TestManager_PerUserCapEviction(t *testing.T) {
	m := NewManager(WithMaxConnectionsPerUser(2))

	mb1 := NewMailbox(10)
	mb2 := NewMailbox(10)
	mb3 := NewMailbox(10)

	s1 := m.AddConnection(7, mb1, "SystemNotification")
	time.Sleep(time.Millisecond)
	s2 := m.AddConnection(7, mb2, "SystemNotification")
	time.Sleep(time.Millisecond)
	s3 := m.AddConnection(7, mb3, "SystemNotification")

	streams := m.GetUserStreams(7)
	if len(streams) != 2 {
		t.Fatalf("want 2 streams after cap eviction, got %d", len(streams))
	}

	// s1's mailbox must have been closed by the eviction.
	if _, ok := mb1.Get(context.Background()); ok {
		t.Fatalf("evicted mailbox should be closed/drained")
	}

	found2, found3 := false, false
	for _, mb := range streams {
		if mb == mb2 {
			found2 = true
		}
		if mb == mb3 {
			found3 = true
		}
	}
	if !found2 || !found3 {
		t.Fatalf("expected remaining streams to be s2=%s and s3=%s", s2, s3)
	}
	_ = s1
}

func TestManager_RemoveConnectionIdempotent(t *testing.T) {
	m := NewManager()
	mb := NewMailbox(10)
	sid := m.AddConnection(1, mb, "SystemNotification")

	m.RemoveConnection(1, sid, "SystemNotification")
	if m.IsConnected(1) {
		t.Fatalf("user should be offline after removing its only stream")
	}
	// Second removal must not panic and must stay a no-op.
	m.RemoveConnection(1, sid, "SystemNotification")
}

func TestManager_EventTypeUsersIndex(t *testing.T) {
	m := NewManager()
	mbA := NewMailbox(10)
	mbB := NewMailbox(10)

	m.AddConnection(1, mbA, "SystemNotification")
	m.AddConnection(2, mbB, "SystemNotification")

	users := m.GetEventTypeUsers("SystemNotification")
	if len(users) != 2 {
		t.Fatalf("want 2 online users for event type, got %d", len(users))
	}

	m.RemoveAllConnections(1)
	users = m.GetEventTypeUsers("SystemNotification")
	if len(users) != 1 || users[0] != 2 {
		t.Fatalf("want only user 2 left subscribed, got %v", users)
	}
}

func TestMailbox_DropOldestOverflow(t *testing.T) {
	mb := NewMailbox(3)
	for i := int64(1); i <= 5; i++ {
		mb.Put(mkEvent(i))
	}
	if mb.Len() != 3 {
		t.Fatalf("want 3 queued after overflow, got %d", mb.Len())
	}

	ctx := context.Background()
	want := []int64{3, 4, 5}
	for _, w := range want {
		ev, ok := mb.Get(ctx)
		if !ok || ev.ID != w {
			t.Fatalf("want event %d, got %+v (ok=%v)", w, ev, ok)
		}
	}
	if mb.DroppedCount() != 2 {
		t.Fatalf("want 2 dropped, got %d", mb.DroppedCount())
	}
}

func TestMailbox_GetBlocksUntilPut(t *testing.T) {
	mb := NewMailbox(1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan *event.Event, 1)
	go func() {
		ev, ok := mb.Get(ctx)
		if ok {
			done <- ev
		} else {
			done <- nil
		}
	}()

	time.Sleep(20 * time.Millisecond)
	mb.Put(mkEvent(99))

	select {
	case ev := <-done:
		if ev == nil || ev.ID != 99 {
			t.Fatalf("want event 99, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("Get never returned after Put")
	}
}

func TestMailbox_CloseUnblocksReader(t *testing.T) {
	mb := NewMailbox(1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		_, ok := mb.Get(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	mb.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Get should report ok=false on a closed, empty mailbox")
		}
	case <-time.After(time.Second):
		t.Fatalf("Get never unblocked after Close")
	}
}
