// Package service is the Notification Provider Facade of spec §2/§6: the
// narrow outward-facing contract the web layer consumes instead of reaching
// into EventManager/ConnectionManager/EventStore directly. Grounded on the
// teacher's internal/service/delivery.go (Deliverer interface, a thin facade
// over the registry/hub pair).
package service

import (
	"context"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/store"
)

// Notifier is the primary interface transport handlers (SSE, REST) depend
// on, never the concrete Facade — mirrors the teacher's Deliverer
// interface/implementation split.
type Notifier interface {
	SendUserNotification(ctx context.Context, userID int64, title, message string, priority event.Priority, expireAfter time.Duration) (*event.Event, error)
	SendGlobalNotification(ctx context.Context, eventType string, title, message string, priority event.Priority, expireAfter time.Duration) (int, error)
	FetchUnread(ctx context.Context, userID int64) ([]event.Row, error)
	DismissItems(ctx context.Context, userID int64, eventIDs []int64) (int64, error)
	DismissAll(ctx context.Context, userID int64) (int64, error)
	SendEvent(ctx context.Context, eventType string, targetUserID int64, payload event.Payload, priority event.Priority) bool
	GetConnectedUsers(eventType string) []int64
}

// Facade implements Notifier over an EventManager, EventStore and
// ConnectionManager, none of which the web layer ever sees directly.
type Facade struct {
	mgr   *eventmanager.Manager
	store store.EventStore
	conns connectedUserLister
}

// connectedUserLister is the narrow slice of ConnectionManager the facade
// needs for get_connected_users / send_global_notification, named as an
// interface so tests can fake it without pulling in the whole connection
// package's locking machinery.
type connectedUserLister interface {
	GetEventTypeUsers(eventType string) []int64
	AllConnectedUserIDs() []int64
}

// NewFacade returns a ready Facade.
func NewFacade(mgr *eventmanager.Manager, st store.EventStore, conns connectedUserLister) *Facade {
	return &Facade{mgr: mgr, store: st, conns: conns}
}

var _ Notifier = (*Facade)(nil)

// SendUserNotification is the REST surface's generate_notification path
// specialised to a single target user (spec §6 POST /generate_notification
// with target_userid set).
func (f *Facade) SendUserNotification(ctx context.Context, userID int64, title, message string, priority event.Priority, expireAfter time.Duration) (*event.Event, error) {
	var expire *time.Duration
	if expireAfter > 0 {
		expire = &expireAfter
	}
	return f.mgr.CreateEvent(ctx, "SystemNotification", userID, priority, expire,
		&event.SystemNotificationPayload{Title: title, Message: message})
}

// SendGlobalNotification is spec §4.3's global broadcast: the caller
// iterates get_eventtype_users and calls create_event per user — the core
// never persists an is_global flag. It returns how many users were
// targeted (online or not; create_event always persists regardless).
func (f *Facade) SendGlobalNotification(ctx context.Context, eventType string, title, message string, priority event.Priority, expireAfter time.Duration) (int, error) {
	var expire *time.Duration
	if expireAfter > 0 {
		expire = &expireAfter
	}
	userIDs := f.conns.GetEventTypeUsers(eventType)
	n := 0
	for _, uid := range userIDs {
		if _, err := f.mgr.CreateEvent(ctx, eventType, uid, priority, expire,
			&event.SystemNotificationPayload{Title: title, Message: message}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// FetchUnread backs the admin/diagnostic surface that lists a user's
// pending events without opening a stream.
func (f *Facade) FetchUnread(ctx context.Context, userID int64) ([]event.Row, error) {
	return f.store.FetchUnread(ctx, userID)
}

// DismissItems is POST /mark_events_read: bulk-marks the named events read
// for userID. It only flips rows userID actually owns (store.BulkMarkRead
// and MarkRead both scope by target_userid); this wraps the single-event
// primitive in a loop because the store interface's bulk primitive marks
// every unread row for a user, not an arbitrary id subset.
func (f *Facade) DismissItems(ctx context.Context, userID int64, eventIDs []int64) (int64, error) {
	var n int64
	for _, id := range eventIDs {
		if err := f.store.MarkRead(ctx, userID, id); err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// DismissAll is the bulk-read API named in spec §9's open question on
// distribution acknowledgement: marks every unread row userID owns as read.
func (f *Facade) DismissAll(ctx context.Context, userID int64) (int64, error) {
	return f.store.BulkMarkRead(ctx, userID)
}

// SendEvent is the ephemeral (send_raw_event) path for real-time ticks that
// never hit the store.
func (f *Facade) SendEvent(ctx context.Context, eventType string, targetUserID int64, payload event.Payload, priority event.Priority) bool {
	return f.mgr.SendRawEvent(eventType, targetUserID, payload, priority)
}

// GetConnectedUsers exposes ConnectionManager.GetEventTypeUsers for
// operator tooling/diagnostics.
func (f *Facade) GetConnectedUsers(eventType string) []int64 {
	return f.conns.GetEventTypeUsers(eventType)
}
