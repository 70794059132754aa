package service

import (
	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/store"
)

// Module wires the Facade behind the Notifier interface, grounded on the
// teacher's internal/service/module.go fx.Annotate(fx.As(...)) convention.
var Module = fx.Module(
	"service",
	fx.Provide(
		fx.Annotate(
			provideFacade,
			fx.As(new(Notifier)),
		),
	),
)

func provideFacade(mgr *eventmanager.Manager, st store.EventStore, conns *connection.Manager) *Facade {
	return NewFacade(mgr, st, conns)
}
