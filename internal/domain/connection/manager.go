package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxConnectionsPerUser = 10
)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithMaxConnectionsPerUser overrides the per-user stream cap (spec §6
// max_connections_per_user, default 10).
func WithMaxConnectionsPerUser(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxConnectionsPerUser = n
		}
	}
}

// WithLogger attaches a logger used for eviction and admission diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithOnEvict registers a callback invoked whenever AddConnection evicts a
// stream for exceeding the per-user cap, letting callers (e.g. the
// telemetry package) count evictions without this package importing a
// metrics library.
func WithOnEvict(fn func(userID int64, eventType string)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// SetOnEvict attaches the eviction callback after construction, for the
// common dependency-injection case where the telemetry instrumentation it
// reports to depends on a Manager further down the graph and so can't be
// built in time to pass as a constructor Option.
func (m *Manager) SetOnEvict(fn func(userID int64, eventType string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Manager is the ConnectionManager of spec §3/§4.2: it tracks every live
// per-user mailbox, enforces the per-user connection cap with oldest-first
// eviction, and indexes which users are online for a given event type.
//
// It is grounded on the teacher's registry.Hub — a single synchronization
// point guarding a map of per-user groupings — but traded Hub's sync.Map +
// per-cell-goroutine design for one RWMutex guarding three plain maps,
// because admitting a connection here is a single atomic transaction across
// the per-user cap, the connect-time index, and the event-type index (spec
// invariant 4), which a lock-free map can't give us without a second
// coordination mechanism anyway.
type Manager struct {
	mu                    sync.RWMutex
	cells                 map[int64]*cell
	eventTypeUsers        map[string]map[int64]struct{}
	maxConnectionsPerUser int
	log                   *slog.Logger
	onEvict               func(userID int64, eventType string)
}

// NewManager returns a ready Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cells:                 make(map[int64]*cell),
		eventTypeUsers:        make(map[string]map[int64]struct{}),
		maxConnectionsPerUser: defaultMaxConnectionsPerUser,
		log:                   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddConnection admits mailbox as a new stream for userID/eventType. If the
// user already holds maxConnectionsPerUser streams, the strictly oldest one
// (by connect time) is evicted and its mailbox closed before the new one is
// inserted (spec invariant 4 / scenario C).
func (m *Manager) AddConnection(userID int64, mailbox *Mailbox, eventType string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cells[userID]
	if !ok {
		c = newCell(userID)
		m.cells[userID] = c
	}

	if len(c.streams) >= m.maxConnectionsPerUser {
		evict := c.oldest()
		if evict != nil {
			m.removeStreamLocked(c, evict.id, evict.eventType)
			m.log.Info("connection: evicted oldest stream over per-user cap",
				"user_id", userID, "stream_id", evict.id, "event_type", evict.eventType)
			if m.onEvict != nil {
				m.onEvict(userID, evict.eventType)
			}
		}
	}

	id := uuid.New()
	c.streams[id] = &stream{
		id:          id,
		eventType:   eventType,
		mailbox:     mailbox,
		connectedAt: time.Now(),
	}

	users, ok := m.eventTypeUsers[eventType]
	if !ok {
		users = make(map[int64]struct{})
		m.eventTypeUsers[eventType] = users
	}
	users[userID] = struct{}{}

	return id
}

// RemoveConnection deregisters streamID from userID's cell. Idempotent: a
// miss is a no-op (spec §4.2).
func (m *Manager) RemoveConnection(userID int64, streamID uuid.UUID, eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cells[userID]
	if !ok {
		return
	}
	m.removeStreamLocked(c, streamID, eventType)
	if len(c.streams) == 0 {
		delete(m.cells, userID)
	}
}

// removeStreamLocked must be called with mu held. It never second-guesses
// which stream_ids belong to a user by inspecting the UUID itself — the
// connection table's own map is the only source of truth (spec §4.2 note on
// remove_all_connections).
func (m *Manager) removeStreamLocked(c *cell, streamID uuid.UUID, eventType string) {
	s, ok := c.streams[streamID]
	if !ok {
		return
	}
	s.mailbox.Close()
	delete(c.streams, streamID)

	if users, ok := m.eventTypeUsers[eventType]; ok {
		stillSubscribed := false
		for _, other := range c.streams {
			if other.eventType == eventType {
				stillSubscribed = true
				break
			}
		}
		if !stillSubscribed {
			delete(users, c.userID)
			if len(users) == 0 {
				delete(m.eventTypeUsers, eventType)
			}
		}
	}
}

// RemoveAllConnections purges every stream belonging to userID. Called on
// full logout and on manager shutdown (spec §4.2).
func (m *Manager) RemoveAllConnections(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cells[userID]
	if !ok {
		return
	}
	for id, s := range c.streams {
		m.removeStreamLocked(c, id, s.eventType)
	}
	delete(m.cells, userID)
}

// GetUserStreams returns a snapshot of userID's mailboxes. Callers iterate
// the snapshot unlocked (spec §4.2 get_user_streams).
func (m *Manager) GetUserStreams(userID int64) []*Mailbox {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cells[userID]
	if !ok {
		return nil
	}
	out := make([]*Mailbox, 0, len(c.streams))
	for _, s := range c.streams {
		out = append(out, s.mailbox)
	}
	return out
}

// GetAllStreams returns a snapshot of every mailbox in the system. The
// distributor does not use it; it fans out per user via GetUserStreams.
func (m *Manager) GetAllStreams() []*Mailbox {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Mailbox, 0)
	for _, c := range m.cells {
		for _, s := range c.streams {
			out = append(out, s.mailbox)
		}
	}
	return out
}

// GetEventTypeUsers returns a snapshot of user IDs currently holding at
// least one stream for eventType (spec §4.2 get_eventtype_users — the basis
// for global broadcast, which the caller expresses by iterating this set
// and calling create_event per user).
func (m *Manager) GetEventTypeUsers(eventType string) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users, ok := m.eventTypeUsers[eventType]
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(users))
	for uid := range users {
		out = append(out, uid)
	}
	return out
}

// IsConnected reports whether userID currently holds any stream.
func (m *Manager) IsConnected(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cells[userID]
	return ok && len(c.streams) > 0
}

// AllConnectedUserIDs returns a snapshot of every user ID currently holding
// at least one stream, used by shutdown to disconnect everyone without
// needing a per-event-type index walk.
func (m *Manager) AllConnectedUserIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.cells))
	for uid := range m.cells {
		out = append(out, uid)
	}
	return out
}

// ConnectedUserCount reports how many distinct users currently hold at
// least one stream.
func (m *Manager) ConnectedUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}

// Shutdown purges every connection, closing every mailbox in the process.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cells {
		for _, s := range c.streams {
			s.mailbox.Close()
		}
	}
	m.cells = make(map[int64]*cell)
	m.eventTypeUsers = make(map[string]map[int64]struct{})
}
