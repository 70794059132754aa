package ingress

import (
	"context"
	"testing"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/store"
)

func TestBus_PublishCreatesEvent(t *testing.T) {
	reg := event.NewRegistry()
	reg.Register("SystemNotification", func() event.Payload { return &event.SystemNotificationPayload{} })

	conns := connection.NewManager()
	st := store.NewFake()
	mgr := eventmanager.New(st, reg, conns)
	defer mgr.Shutdown(context.Background())

	bus, err := NewBus(nil)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	if err := bus.BindManager(mgr, reg); err != nil {
		t.Fatalf("BindManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()
	defer bus.Close()

	<-bus.router.Running()

	if err := bus.Publish(Envelope{
		EventType:    "SystemNotification",
		TargetUserID: 1,
		Priority:     "HIGH",
		Payload:      []byte(`{"title":"hi","message":"there"}`),
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rows, ferr := st.FetchUnread(context.Background(), 1)
		if ferr != nil {
			t.Fatalf("FetchUnread: %v", ferr)
		}
		if len(rows) == 1 {
			if rows[0].Priority != event.PriorityHigh {
				t.Fatalf("want HIGH priority, got %v", rows[0].Priority)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("envelope was never persisted as an event within the deadline")
}
