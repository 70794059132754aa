// Package store defines the persistence boundary for the delivery engine:
// the single `event` table spec §6 names, and the narrow interface the
// EventManager uses to reach it without knowing it's Postgres.
package store

import (
	"context"
	"errors"

	"github.com/notifyhub/sse-engine/internal/domain/event"
)

// ErrNotFound is returned when a row lookup by ID misses.
var ErrNotFound = errors.New("store: event not found")

// ErrStoreFailure wraps any underlying persistence error the caller should
// surface as the §7 StoreFailure kind.
var ErrStoreFailure = errors.New("store: operation failed")

// EventStore is the persistence collaborator named in spec §6: "the
// relational database manager exposing transactional sessions" is out of
// scope, but the narrow interface that reaches it is in scope and owned
// here.
type EventStore interface {
	// Insert persists a new, not-yet-stored event and returns it with ID
	// populated.
	Insert(ctx context.Context, row event.Row) (event.Row, error)

	// MarkRead flips is_read for a single event owned by userID. Returns
	// ErrNotFound if no such row exists for that user.
	MarkRead(ctx context.Context, userID, eventID int64) error

	// BulkMarkRead flips is_read for every unread row owned by userID,
	// returning the count affected.
	BulkMarkRead(ctx context.Context, userID int64) (int64, error)

	// FetchUnread returns userID's undelivered rows ordered priority desc,
	// created_at asc (spec §4.1 fetch_unread).
	FetchUnread(ctx context.Context, userID int64) ([]event.Row, error)

	// FetchUnreadByType is FetchUnread filtered to one event_type (spec
	// §4.1 fetch_unread_by_type), used by recovery on stream registration.
	FetchUnreadByType(ctx context.Context, userID int64, eventType string) ([]event.Row, error)

	// PurgeStale deletes every row where is_read is true or expired_at has
	// passed (spec §4.1 purge_stale). Returns the count removed.
	PurgeStale(ctx context.Context) (int64, error)

	// Delete removes a single row outright, used by recovery to discard
	// rows that expired between creation and reconnect.
	Delete(ctx context.Context, eventID int64) error
}
