package ingress

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
)

// Module provides the ingress Bus and joins its router to the application
// lifecycle, grounded on the teacher's internal/handler/amqp/router.go
// fx.Lifecycle OnStart/OnStop convention.
var Module = fx.Module(
	"ingress",
	fx.Provide(provideBus),
	fx.Invoke(registerLifecycle),
)

func provideBus(logger *slog.Logger) (*Bus, error) {
	return NewBus(logger)
}

func registerLifecycle(lc fx.Lifecycle, bus *Bus, mgr *eventmanager.Manager, reg *event.Registry) error {
	if err := bus.BindManager(mgr, reg); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				_ = bus.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return bus.Close()
		},
	})
	return nil
}
