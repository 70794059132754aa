package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/sse-engine/internal/domain/event"
)

// Fake is an in-memory EventStore used by eventmanager and service tests. It
// is not a mock of the interface's calls; it actually keeps rows and applies
// the same ordering/filtering rules the Postgres repository does, so tests
// exercise real read-your-writes behaviour.
type Fake struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]event.Row
}

// NewFake returns an empty Fake store.
func NewFake() *Fake {
	return &Fake{rows: make(map[int64]event.Row)}
}

var _ EventStore = (*Fake)(nil)

func (f *Fake) Insert(_ context.Context, row event.Row) (event.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row.ID = f.nextID
	f.rows[row.ID] = row
	return row, nil
}

func (f *Fake) MarkRead(_ context.Context, userID, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[eventID]
	if !ok || row.TargetUserID != userID {
		return ErrNotFound
	}
	row.IsRead = true
	f.rows[eventID] = row
	return nil
}

func (f *Fake) BulkMarkRead(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, row := range f.rows {
		if row.TargetUserID == userID && !row.IsRead {
			row.IsRead = true
			f.rows[id] = row
			n++
		}
	}
	return n, nil
}

func (f *Fake) FetchUnread(ctx context.Context, userID int64) ([]event.Row, error) {
	return f.fetchUnread(userID, "")
}

func (f *Fake) FetchUnreadByType(ctx context.Context, userID int64, eventType string) ([]event.Row, error) {
	return f.fetchUnread(userID, eventType)
}

func (f *Fake) fetchUnread(userID int64, eventType string) ([]event.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	var out []event.Row
	for _, row := range f.rows {
		if row.TargetUserID != userID || row.IsRead {
			continue
		}
		if row.ExpiredAt != nil && !row.ExpiredAt.After(now) {
			continue
		}
		if eventType != "" && row.EventType != eventType {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *Fake) Delete(_ context.Context, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, eventID)
	return nil
}

func (f *Fake) PurgeStale(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for id, row := range f.rows {
		if row.IsRead || (row.ExpiredAt != nil && !row.ExpiredAt.After(now)) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}
