// Package telemetry wires the delivery engine's own operational metrics
// onto OpenTelemetry, grounded on the teacher's go.opentelemetry.io/otel +
// otel/sdk dependency pair (SUPPLEMENTED FEATURES §1 of SPEC_FULL.md,
// replacing the source's bespoke Metrics class with real instruments).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Meter is the name instruments are registered under.
const Meter = "github.com/notifyhub/sse-engine"

// Instruments bundles every counter/gauge the engine emits. Components take
// a *Instruments (never the raw otel meter) so call sites read as domain
// operations, not metric plumbing.
type Instruments struct {
	EventsCreated      metric.Int64Counter
	EventsDropped      metric.Int64Counter
	EventsRecovered    metric.Int64Counter
	MailboxEvictions   metric.Int64Counter
	ConnectionsActive  metric.Int64UpDownCounter
	ConnectionsEvicted metric.Int64Counter
	QueueDepth         metric.Int64ObservableGauge
}

// New builds Instruments against the given MeterProvider. depthFn is
// sampled on demand by QueueDepth's observable callback.
func New(mp metric.MeterProvider, depthFn func() int64) (*Instruments, error) {
	m := mp.Meter(Meter)

	created, err := m.Int64Counter("sse.events.created",
		metric.WithDescription("Events persisted via create_event"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: events.created: %w", err)
	}
	dropped, err := m.Int64Counter("sse.events.dropped",
		metric.WithDescription("Events dropped due to a full central queue"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: events.dropped: %w", err)
	}
	recovered, err := m.Int64Counter("sse.events.recovered",
		metric.WithDescription("Events re-materialised into a mailbox on reconnect"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: events.recovered: %w", err)
	}
	evictions, err := m.Int64Counter("sse.mailbox.evictions",
		metric.WithDescription("Drop-oldest evictions from a full mailbox"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: mailbox.evictions: %w", err)
	}
	active, err := m.Int64UpDownCounter("sse.connections.active",
		metric.WithDescription("Currently live SSE stream connections"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: connections.active: %w", err)
	}
	connEvicted, err := m.Int64Counter("sse.connections.evicted",
		metric.WithDescription("Streams evicted for exceeding the per-user cap"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: connections.evicted: %w", err)
	}
	depth, err := m.Int64ObservableGauge("sse.queue.depth",
		metric.WithDescription("Current depth of the central event queue"),
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			if depthFn != nil {
				obs.Observe(depthFn())
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: queue.depth: %w", err)
	}

	return &Instruments{
		EventsCreated:      created,
		EventsDropped:      dropped,
		EventsRecovered:    recovered,
		MailboxEvictions:   evictions,
		ConnectionsActive:  active,
		ConnectionsEvicted: connEvicted,
		QueueDepth:         depth,
	}, nil
}
