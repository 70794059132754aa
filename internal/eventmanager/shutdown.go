package eventmanager

import (
	"context"
	"time"
)

// Shutdown implements spec §4.4's shutdown sequence. It is idempotent:
// concurrent or repeated calls are equivalent to calling it once, and no
// panic escapes regardless of how many times it's invoked.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownGuard.Do(func() {
		m.doShutdown(ctx)
	})
	return nil
}

func (m *Manager) doShutdown(ctx context.Context) {
	m.state.Store(int32(StateShuttingDown))
	close(m.shutdownCh)

	// Every user currently connected is disconnected; remove_all_connections
	// closes their mailboxes so any in-flight handler read unblocks cleanly.
	for _, uid := range m.conns.AllConnectedUserIDs() {
		m.conns.RemoveAllConnections(uid)
	}

	m.joinWithBound(m.distributorDone, defaultShutdownJoinWait, "distributor")

	if _, err := m.store.PurgeStale(ctx); err != nil {
		m.log.Error("eventmanager: final purge_stale failed", "error", err)
	}

	m.joinWithBound(m.cleanupDone, defaultShutdownJoinWait, "cleanup")

	m.state.Store(int32(StateStopped))
	m.log.Info("eventmanager: shutdown complete")
}

func (m *Manager) joinWithBound(done chan struct{}, bound time.Duration, name string) {
	select {
	case <-done:
	case <-time.After(bound):
		m.log.Warn("eventmanager: worker did not exit within shutdown bound", "worker", name)
	}
}
