package service

import (
	"context"
	"testing"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/store"
)

func newTestRegistry() *event.Registry {
	reg := event.NewRegistry()
	event.RegisterDefaults(reg)
	return reg
}

func newTestFacade(t *testing.T) (*Facade, *store.Fake, *connection.Manager) {
	t.Helper()
	st := store.NewFake()
	conns := connection.NewManager()
	reg := newTestRegistry()
	mgr := eventmanager.New(st, reg, conns, eventmanager.WithManualDistributor())
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	return NewFacade(mgr, st, conns), st, conns
}

func TestSendUserNotification(t *testing.T) {
	f, st, _ := newTestFacade(t)
	ctx := context.Background()

	ev, err := f.SendUserNotification(ctx, 7, "Hello", "World", event.PriorityHigh, 0)
	if err != nil {
		t.Fatalf("SendUserNotification: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected a non-nil event")
	}

	rows, err := st.FetchUnread(ctx, 7)
	if err != nil {
		t.Fatalf("FetchUnread: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 unread row, got %d", len(rows))
	}
}

func TestDismissItemsSkipsUnknownIDs(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	ev, err := f.SendUserNotification(ctx, 7, "Hello", "World", event.PriorityNormal, 0)
	if err != nil {
		t.Fatalf("SendUserNotification: %v", err)
	}

	n, err := f.DismissItems(ctx, 7, []int64{ev.ID, 9999})
	if err != nil {
		t.Fatalf("DismissItems: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 dismissed, got %d", n)
	}
}

func TestDismissAll(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.SendUserNotification(ctx, 7, "Hello", "World", event.PriorityNormal, 0); err != nil {
			t.Fatalf("SendUserNotification: %v", err)
		}
	}

	n, err := f.DismissAll(ctx, 7)
	if err != nil {
		t.Fatalf("DismissAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 dismissed, got %d", n)
	}
}

func TestSendEventOfflineIsFalse(t *testing.T) {
	f, _, _ := newTestFacade(t)

	if f.SendEvent(context.Background(), "SystemNotification", 7, &event.SystemNotificationPayload{Title: "t", Message: "m"}, event.PriorityNormal) {
		t.Fatalf("expected SendEvent to report false for an offline user")
	}
}

func TestGetConnectedUsers(t *testing.T) {
	f, _, conns := newTestFacade(t)

	mailbox := connection.NewMailbox(10)
	conns.AddConnection(7, mailbox, "SystemNotification")

	users := f.GetConnectedUsers("SystemNotification")
	if len(users) != 1 || users[0] != 7 {
		t.Fatalf("expected [7], got %v", users)
	}
}
