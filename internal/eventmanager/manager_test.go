package eventmanager

import (
	"context"
	"testing"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/store"
)

func newTestRegistry() *event.Registry {
	reg := event.NewRegistry()
	reg.Register("SystemNotification", func() event.Payload { return &event.SystemNotificationPayload{} })
	return reg
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *store.Fake, *connection.Manager) {
	t.Helper()
	st := store.NewFake()
	conns := connection.NewManager()
	reg := newTestRegistry()
	m := New(st, reg, conns, opts...)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, st, conns
}

func TestScenarioA_OnlineSingleConnectionDelivery(t *testing.T) {
	m, _, conns := newTestManager(t)
	ctx := context.Background()

	streamID, mailbox, err := m.RegisterUserStream(ctx, 42, "SystemNotification")
	if err != nil {
		t.Fatalf("RegisterUserStream: %v", err)
	}
	if !conns.IsConnected(42) {
		t.Fatalf("user 42 should be connected")
	}

	expire := 60 * time.Minute
	ev, err := m.CreateEvent(ctx, "SystemNotification", 42, event.PriorityNormal, &expire,
		&event.SystemNotificationPayload{Title: "hi", Message: "there"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected a non-nil event")
	}

	deadline := time.After(time.Second)
	var got *event.Event
	for got == nil {
		select {
		case <-deadline:
			t.Fatalf("mailbox never received the event within 1s")
		default:
			gctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			e, ok := mailbox.Get(gctx)
			cancel()
			if ok {
				got = e
			}
		}
	}

	wire := got.ToWireDict()
	if wire.EventType != "SystemNotification" || wire.Priority != "NORMAL" || wire.IsRecovered {
		t.Fatalf("unexpected wire dict: %+v", wire)
	}
	payload, ok := wire.Payload.(*event.SystemNotificationPayload)
	if !ok || payload.Title != "hi" || payload.Message != "there" {
		t.Fatalf("unexpected payload: %+v", wire.Payload)
	}
	_ = streamID
}

func TestScenarioB_OfflineThenRecover(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	titles := []string{"a", "b", "c"}
	for _, title := range titles {
		if _, err := m.CreateEvent(ctx, "SystemNotification", 42, event.PriorityNormal, nil,
			&event.SystemNotificationPayload{Title: title, Message: title}); err != nil {
			t.Fatalf("CreateEvent(%s): %v", title, err)
		}
	}

	_, mailbox, err := m.RegisterUserStream(ctx, 42, "SystemNotification")
	if err != nil {
		t.Fatalf("RegisterUserStream: %v", err)
	}

	var recovered []*event.Event
	for len(recovered) < 3 {
		gctx, cancel := context.WithTimeout(ctx, time.Second)
		e, ok := mailbox.Get(gctx)
		cancel()
		if !ok {
			t.Fatalf("expected 3 recovered events, got %d", len(recovered))
		}
		recovered = append(recovered, e)
	}

	for _, e := range recovered {
		if !e.IsRecovered {
			t.Fatalf("recovered event should have is_recovered=true: %+v", e)
		}
	}
}

func TestScenarioC_PerUserCapEviction(t *testing.T) {
	conns := connection.NewManager(connection.WithMaxConnectionsPerUser(2))
	st := store.NewFake()
	reg := newTestRegistry()
	m := New(st, reg, conns)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	ctx := context.Background()

	s1, _, _ := m.RegisterUserStream(ctx, 7, "SystemNotification")
	time.Sleep(time.Millisecond)
	_, _, _ = m.RegisterUserStream(ctx, 7, "SystemNotification")
	time.Sleep(time.Millisecond)
	s3, _, _ := m.RegisterUserStream(ctx, 7, "SystemNotification")

	streams := conns.GetUserStreams(7)
	if len(streams) != 2 {
		t.Fatalf("want 2 streams after cap eviction, got %d", len(streams))
	}
	_ = s1
	_ = s3
}

func TestScenarioE_CentralQueueFull(t *testing.T) {
	conns := connection.NewManager()
	st := store.NewFake()
	reg := newTestRegistry()
	m := New(st, reg, conns, WithMaxEventQueueSize(2), WithManualDistributor())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	ctx := context.Background()

	if _, _, err := m.RegisterUserStream(ctx, 9, "SystemNotification"); err != nil {
		t.Fatalf("RegisterUserStream: %v", err)
	}

	var results []*event.Event
	for i := 0; i < 3; i++ {
		ev, err := m.CreateEvent(ctx, "SystemNotification", 9, event.PriorityNormal, nil,
			&event.SystemNotificationPayload{Title: "t", Message: "m"})
		if err != nil {
			t.Fatalf("CreateEvent #%d: %v", i, err)
		}
		results = append(results, ev)
	}

	if results[0] == nil || results[1] == nil {
		t.Fatalf("first two creates should succeed, got %+v", results)
	}
	if results[2] != nil {
		t.Fatalf("third create should report a full-queue drop (nil), got %+v", results[2])
	}

	rows, err := st.FetchUnread(ctx, 9)
	if err != nil {
		t.Fatalf("FetchUnread: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("all 3 rows should exist unread in the store, got %d", len(rows))
	}
}

func TestScenarioF_ShutdownPersistence(t *testing.T) {
	conns := connection.NewManager()
	st := store.NewFake()
	reg := newTestRegistry()
	m := New(st, reg, conns, WithMaxEventQueueSize(10), WithManualDistributor())
	ctx := context.Background()

	if _, _, err := m.RegisterUserStream(ctx, 3, "SystemNotification"); err != nil {
		t.Fatalf("RegisterUserStream: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := m.CreateEvent(ctx, "SystemNotification", 3, event.PriorityNormal, nil,
			&event.SystemNotificationPayload{Title: "t", Message: "m"}); err != nil {
			t.Fatalf("CreateEvent #%d: %v", i, err)
		}
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	// A repeated shutdown must not panic or error.
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}

	rows, err := st.FetchUnread(ctx, 3)
	if err != nil {
		t.Fatalf("FetchUnread: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("want 5 unread rows after shutdown, got %d", len(rows))
	}

	if _, err := m.CreateEvent(ctx, "SystemNotification", 3, event.PriorityNormal, nil,
		&event.SystemNotificationPayload{Title: "t", Message: "m"}); err != ErrManagerNotRunning {
		t.Fatalf("want ErrManagerNotRunning after shutdown, got %v", err)
	}
}

func TestInvariant_MarkReadExcludesFromFetchUnread(t *testing.T) {
	st := store.NewFake()
	ctx := context.Background()
	row, err := st.Insert(ctx, event.Row{EventType: "SystemNotification", TargetUserID: 1, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := st.MarkRead(ctx, 1, row.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	rows, err := st.FetchUnread(ctx, 1)
	if err != nil {
		t.Fatalf("FetchUnread: %v", err)
	}
	for _, r := range rows {
		if r.ID == row.ID {
			t.Fatalf("marked-read row should not appear in fetch_unread")
		}
	}
}

func TestInvariant_OfflineCreateDoesNotEnqueue(t *testing.T) {
	m, st, conns := newTestManager(t)
	ctx := context.Background()

	if conns.IsConnected(99) {
		t.Fatalf("user 99 should start offline")
	}
	ev, err := m.CreateEvent(ctx, "SystemNotification", 99, event.PriorityNormal, nil,
		&event.SystemNotificationPayload{Title: "t", Message: "m"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev == nil {
		t.Fatalf("offline create should still return the stored event")
	}
	if len(m.queue) != 0 {
		t.Fatalf("central queue should not have been enqueued to for an offline user")
	}
	rows, err := st.FetchUnread(ctx, 99)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected 1 stored unread row, got %d (err=%v)", len(rows), err)
	}
}

func TestUnknownEventTypeFailsCreate(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.CreateEvent(context.Background(), "NoSuchType", 1, event.PriorityNormal, nil,
		event.RawPayload(nil))
	if err != ErrUnknownEventType {
		t.Fatalf("want ErrUnknownEventType, got %v", err)
	}
}
