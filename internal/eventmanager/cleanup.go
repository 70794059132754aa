package eventmanager

import (
	"context"
	"time"
)

// runCleanup is the single background worker of spec §4.4: every tick it
// calls store.purge_stale(); exceptions are logged and the worker sleeps
// the full interval regardless of outcome.
func (m *Manager) runCleanup() {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownCh:
			return
		case <-ticker.C:
			m.purgeStaleOnce()
		}
	}
}

func (m *Manager) purgeStaleOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := m.store.PurgeStale(ctx)
	if err != nil {
		m.log.Error("eventmanager: cleanup tick failed", "error", err)
		return
	}
	if n > 0 {
		m.log.Info("eventmanager: cleanup purged stale rows", "count", n)
	}
}
