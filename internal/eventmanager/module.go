package eventmanager

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/config"
	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/platform/telemetry"
	"github.com/notifyhub/sse-engine/internal/store"
)

// Module wires the EventManager and registers an fx OnStop hook for its
// shutdown sequence (the startup purge runs inside New), grounded on the
// teacher's per-package fx.Module convention.
var Module = fx.Module(
	"eventmanager",
	fx.Provide(provideManager),
	fx.Invoke(registerLifecycle),
)

func provideManager(cfg *config.Config, st store.EventStore, reg *event.Registry, conns *connection.Manager) *Manager {
	return New(st, reg, conns,
		WithMaxEventQueueSize(cfg.Engine.MaxEventQueueSize),
		WithMaxEventsPerStream(cfg.Engine.MaxEventsPerStream),
		WithCleanupInterval(cfg.Engine.CleanupInterval),
		WithDistributorPollTimeout(cfg.Engine.DistributorPollTimeout),
	)
}

// registerLifecycle builds the manager's telemetry instruments (which need
// the manager's own QueueDepth as their gauge callback, so they can't be
// constructed before the manager exists) and attaches fx's OnStop hook to
// the spec §4.4 shutdown sequence.
func registerLifecycle(lc fx.Lifecycle, m *Manager, conns *connection.Manager, mp metric.MeterProvider) error {
	instruments, err := telemetry.New(mp, m.QueueDepth)
	if err != nil {
		return err
	}
	m.SetInstruments(instruments)
	conns.SetOnEvict(func(userID int64, eventType string) {
		instruments.ConnectionsEvicted.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event_type", eventType)))
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return m.Shutdown(shutdownCtx)
		},
	})
	return nil
}
