// Package eventmanager implements the EventManager of spec §4.4: the
// central bounded event queue, its distributor and cleanup workers, and the
// create/send/register/shutdown entry points that orchestrate persistence,
// delivery and recovery.
package eventmanager

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/platform/telemetry"
	"github.com/notifyhub/sse-engine/internal/store"
)

const (
	defaultMaxEventQueueSize       = 1000
	defaultMaxEventsPerStream      = 100
	defaultCleanupInterval         = 30 * time.Minute
	defaultDistributorPollTimeout  = 1 * time.Second
	defaultShutdownJoinWait        = 10 * time.Second
)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithMaxEventQueueSize overrides the central queue capacity (spec §6
// max_event_queue_size, default 1000).
func WithMaxEventQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEventQueueSize = n
		}
	}
}

// WithMaxEventsPerStream overrides per-mailbox capacity (spec §6
// max_events_per_stream, default 100).
func WithMaxEventsPerStream(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEventsPerStream = n
		}
	}
}

// WithCleanupInterval overrides the cleanup worker period (default 30m).
func WithCleanupInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cleanupInterval = d
		}
	}
}

// WithDistributorPollTimeout overrides the distributor's blocking-get
// timeout (default 1s).
func WithDistributorPollTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.distributorPollTimeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// Manager is the EventManager. It owns the central bounded queue and the
// two background workers; the ConnectionManager and EventStore are injected
// collaborators (spec §6 "out of scope (external collaborators)").
type Manager struct {
	store    store.EventStore
	registry *event.Registry
	conns    *connection.Manager
	log      *slog.Logger
	metrics  atomic.Pointer[telemetry.Instruments]

	maxEventQueueSize      int
	maxEventsPerStream     int
	cleanupInterval        time.Duration
	distributorPollTimeout time.Duration

	queue chan *event.Event
	state atomic.Int32

	manualDistributor bool

	distributorDone chan struct{}
	cleanupDone     chan struct{}
	shutdownCh      chan struct{}
	shutdownGuard   sync.Once
}

// WithInstruments attaches the engine's OpenTelemetry counters. Nil is
// accepted and simply skips instrumentation.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(m *Manager) {
		m.metrics.Store(in)
	}
}

// SetInstruments attaches metrics after construction, for the common
// dependency-injection case where Instruments.New needs the manager's
// QueueDepth as its gauge callback and so can't be built before the
// manager exists.
func (m *Manager) SetInstruments(in *telemetry.Instruments) {
	m.metrics.Store(in)
}

// QueueDepth reports how many events currently sit in the central queue,
// sampled by the telemetry gauge callback.
func (m *Manager) QueueDepth() int64 {
	return int64(len(m.queue))
}

// WithManualDistributor disables the background distributor goroutine so
// tests can single-step delivery deterministically, per spec §8's own
// suggestion for verifying invariant 3 ("deterministic in tests by
// single-step driving the distributor"). Call StepDistributor to process
// one queued event.
func WithManualDistributor() Option {
	return func(m *Manager) {
		m.manualDistributor = true
	}
}

// New constructs a Manager, runs the one-time startup purge_stale, and
// starts the distributor and cleanup workers (spec §4.4 Startup recovery).
func New(st store.EventStore, reg *event.Registry, conns *connection.Manager, opts ...Option) *Manager {
	m := &Manager{
		store:                  st,
		registry:               reg,
		conns:                  conns,
		log:                    slog.Default(),
		maxEventQueueSize:      defaultMaxEventQueueSize,
		maxEventsPerStream:     defaultMaxEventsPerStream,
		cleanupInterval:        defaultCleanupInterval,
		distributorPollTimeout: defaultDistributorPollTimeout,
		distributorDone:        make(chan struct{}),
		cleanupDone:            make(chan struct{}),
		shutdownCh:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = make(chan *event.Event, m.maxEventQueueSize)
	m.state.Store(int32(StateStarting))

	if _, err := m.store.PurgeStale(context.Background()); err != nil {
		m.log.Error("eventmanager: startup purge_stale failed", "error", err)
	}

	if m.manualDistributor {
		close(m.distributorDone)
	} else {
		go m.runDistributor()
	}
	go m.runCleanup()
	m.state.Store(int32(StateRunning))

	return m
}

// StepDistributor processes at most one queued event synchronously,
// applying the same discard/distribute policy the background distributor
// uses. It reports whether an event was processed. Only meaningful when the
// Manager was built WithManualDistributor.
func (m *Manager) StepDistributor(ctx context.Context) bool {
	select {
	case ev := <-m.queue:
		m.distributeOne(ev)
		return true
	case <-ctx.Done():
		return false
	default:
		return false
	}
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) running() bool {
	return m.State() == StateRunning
}

// CreateEvent is spec §4.4's creation path. It persists the event
// unconditionally, then enqueues it onto the central queue only if the
// target user currently holds at least one connection. A full queue drops
// the event from delivery (the row remains for recovery) and returns
// (nil, nil), matching the "return the event (or null on full-queue drop)"
// contract.
func (m *Manager) CreateEvent(
	ctx context.Context,
	eventType string,
	targetUserID int64,
	priority event.Priority,
	expireAfter *time.Duration,
	payload event.Payload,
) (*event.Event, error) {
	if !m.running() {
		return nil, ErrManagerNotRunning
	}
	if !m.registry.Registered(eventType) {
		return nil, ErrUnknownEventType
	}
	if err := event.ValidateNew(eventType, payload, targetUserID); err != nil {
		return nil, err
	}

	var expiredAt *time.Time
	if expireAfter != nil {
		t := time.Now().UTC().Add(*expireAfter)
		expiredAt = &t
	}

	ev := &event.Event{
		EventType:    eventType,
		Payload:      payload,
		TargetUserID: targetUserID,
		Priority:     priority,
		CreatedAt:    time.Now().UTC(),
		ExpiredAt:    expiredAt,
	}

	row, ok := ev.ToStoreRow()
	if !ok {
		// Never reachable for a freshly constructed, unread event unless it
		// was created already expired — treat that as a caller error rather
		// than silently dropping it.
		return nil, ErrUnknownEventType
	}
	stored, err := m.store.Insert(ctx, row)
	if err != nil {
		return nil, ErrStoreFailure
	}
	ev.ID = stored.ID
	if mi := m.metrics.Load(); mi != nil {
		mi.EventsCreated.Add(ctx, 1)
	}

	if m.conns.IsConnected(targetUserID) {
		select {
		case m.queue <- ev:
		default:
			if mi := m.metrics.Load(); mi != nil {
				mi.EventsDropped.Add(ctx, 1)
			}
			m.log.Error("eventmanager: central queue full, dropping event from delivery",
				"event_id", ev.ID, "event_type", eventType, "target_userid", targetUserID)
			return nil, nil
		}
	}

	return ev, nil
}

// SendRawEvent is spec §4.4's ephemeral path: never persisted, offline is
// an immediate false, a full queue is a false with a warning log.
func (m *Manager) SendRawEvent(eventType string, targetUserID int64, payload event.Payload, priority event.Priority) bool {
	if !m.running() {
		return false
	}
	if !m.conns.IsConnected(targetUserID) {
		return false
	}

	ev := &event.Event{
		EventType:    eventType,
		Payload:      payload,
		TargetUserID: targetUserID,
		Priority:     priority,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case m.queue <- ev:
		return true
	default:
		m.log.Warn("eventmanager: central queue full, dropping raw event",
			"event_type", eventType, "target_userid", targetUserID)
		return false
	}
}

// RegisterUserStream is spec §4.4's register_user_stream: it creates a
// mailbox, admits it via the ConnectionManager, and triggers recovery for
// this user/event_type before returning the new stream_id.
func (m *Manager) RegisterUserStream(ctx context.Context, userID int64, eventType string) (uuid.UUID, *connection.Mailbox, error) {
	if !m.running() {
		return uuid.Nil, nil, ErrManagerNotRunning
	}

	mailbox := connection.NewMailbox(m.maxEventsPerStream)
	streamID := m.conns.AddConnection(userID, mailbox, eventType)
	if mi := m.metrics.Load(); mi != nil {
		mi.ConnectionsActive.Add(ctx, 1)
	}

	m.recoverUserStream(ctx, userID, eventType, mailbox)

	return streamID, mailbox, nil
}

// UnregisterUserStream is spec §4.4's unregister_user_stream: it delegates
// to the ConnectionManager. Events still queued in the evicted mailbox are
// discarded; the store row remains authoritative.
func (m *Manager) UnregisterUserStream(userID int64, streamID uuid.UUID, eventType string) {
	m.conns.RemoveConnection(userID, streamID, eventType)
	if mi := m.metrics.Load(); mi != nil {
		mi.ConnectionsActive.Add(context.Background(), -1)
	}
}

