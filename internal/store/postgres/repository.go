// Package postgres is the Postgres-backed implementation of store.EventStore,
// grounded on the gorm repository pattern: plain gorm models with explicit
// column tags, and pgconn.PgError code inspection to tell a not-yet-migrated
// (undefined) table apart from genuine failures.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/platform/breaker"
	"github.com/notifyhub/sse-engine/internal/store"
)

// eventModel is the gorm projection of the single `event` table spec §6.3
// names: event(id PK, event_type, payload JSON, target_userid, priority,
// is_read, created_at, expired_at).
type eventModel struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventType    string     `gorm:"column:event_type"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	TargetUserID int64      `gorm:"column:target_userid;index"`
	Priority     int32      `gorm:"column:priority"`
	IsRead       bool       `gorm:"column:is_read;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	ExpiredAt    *time.Time `gorm:"column:expired_at;index"`
}

func (eventModel) TableName() string { return "event" }

func rowFromModel(m eventModel) event.Row {
	return event.Row{
		ID:           m.ID,
		EventType:    m.EventType,
		Payload:      m.Payload,
		TargetUserID: m.TargetUserID,
		Priority:     event.Priority(m.Priority),
		IsRead:       m.IsRead,
		CreatedAt:    m.CreatedAt,
		ExpiredAt:    m.ExpiredAt,
	}
}

func modelFromRow(r event.Row) eventModel {
	return eventModel{
		ID:           r.ID,
		EventType:    r.EventType,
		Payload:      r.Payload,
		TargetUserID: r.TargetUserID,
		Priority:     int32(r.Priority),
		IsRead:       r.IsRead,
		CreatedAt:    r.CreatedAt,
		ExpiredAt:    r.ExpiredAt,
	}
}

// Repository implements store.EventStore against a gorm *gorm.DB, with every
// call routed through a circuit breaker so a degraded database fails fast
// instead of stacking up blocked callers.
type Repository struct {
	db      *gorm.DB
	logger  *slog.Logger
	breaker *breaker.Breaker
}

// Option configures a Repository at construction time.
type Option func(*Repository)

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(r *Repository) {
		r.breaker = b
	}
}

// NewRepository returns a store.EventStore backed by db.
func NewRepository(db *gorm.DB, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		db:      db,
		logger:  logger,
		breaker: breaker.New(breaker.DefaultSettings("event_store")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ store.EventStore = (*Repository)(nil)

func (r *Repository) Insert(ctx context.Context, row event.Row) (event.Row, error) {
	m := modelFromRow(row)
	err := breaker.Do(r.breaker, func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
	if err != nil {
		return event.Row{}, r.logError("store_insert_failed", err,
			"event_type", row.EventType, "target_userid", row.TargetUserID)
	}
	return rowFromModel(m), nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, eventID int64) error {
	var rowsAffected int64
	err := breaker.Do(r.breaker, func() error {
		tx := r.db.WithContext(ctx).Model(&eventModel{}).
			Where("id = ? AND target_userid = ?", eventID, userID).
			Update("is_read", true)
		rowsAffected = tx.RowsAffected
		return tx.Error
	})
	if err != nil {
		return r.logError("store_mark_read_failed", err, "event_id", eventID, "user_id", userID)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) BulkMarkRead(ctx context.Context, userID int64) (int64, error) {
	var affected int64
	err := breaker.Do(r.breaker, func() error {
		tx := r.db.WithContext(ctx).Model(&eventModel{}).
			Where("target_userid = ? AND is_read = false", userID).
			Update("is_read", true)
		affected = tx.RowsAffected
		return tx.Error
	})
	if err != nil {
		return 0, r.logError("store_bulk_mark_read_failed", err, "user_id", userID)
	}
	return affected, nil
}

func (r *Repository) FetchUnread(ctx context.Context, userID int64) ([]event.Row, error) {
	return r.fetchUnread(ctx, userID, "")
}

func (r *Repository) FetchUnreadByType(ctx context.Context, userID int64, eventType string) ([]event.Row, error) {
	return r.fetchUnread(ctx, userID, eventType)
}

func (r *Repository) fetchUnread(ctx context.Context, userID int64, eventType string) ([]event.Row, error) {
	var models []eventModel
	err := breaker.Do(r.breaker, func() error {
		tx := r.db.WithContext(ctx).
			Where("target_userid = ? AND is_read = false", userID).
			Where("expired_at IS NULL OR expired_at > ?", time.Now().UTC())
		if eventType != "" {
			tx = tx.Where("event_type = ?", eventType)
		}
		return tx.Order("priority DESC, created_at ASC").Find(&models).Error
	})
	if err != nil {
		if isUndefinedTable(err) {
			// Schema not migrated yet: recovery on a fresh deployment has
			// nothing to recover, not a store failure.
			return nil, nil
		}
		return nil, r.logError("store_fetch_unread_failed", err, "user_id", userID, "event_type", eventType)
	}
	rows := make([]event.Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, rowFromModel(m))
	}
	return rows, nil
}

func (r *Repository) PurgeStale(ctx context.Context) (int64, error) {
	var affected int64
	err := breaker.Do(r.breaker, func() error {
		tx := r.db.WithContext(ctx).
			Where("is_read = true OR expired_at <= ?", time.Now().UTC()).
			Delete(&eventModel{})
		affected = tx.RowsAffected
		return tx.Error
	})
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, r.logError("store_purge_stale_failed", err)
	}
	return affected, nil
}

func (r *Repository) Delete(ctx context.Context, eventID int64) error {
	err := breaker.Do(r.breaker, func() error {
		return r.db.WithContext(ctx).Delete(&eventModel{}, "id = ?", eventID).Error
	})
	if err != nil {
		return r.logError("store_delete_failed", err, "event_id", eventID)
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

func (r *Repository) logError(eventName string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields, "event", eventName, "layer", "store", "error", err.Error())
	fields = append(fields, attrs...)
	r.logger.Error("event store operation failed", fields...)
	return store.ErrStoreFailure
}
