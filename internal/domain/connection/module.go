package connection

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/config"
)

// Module wires the ConnectionManager, grounded on the teacher's
// registry.Module convention.
var Module = fx.Module(
	"connection",
	fx.Provide(provideManager),
)

func provideManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return NewManager(
		WithMaxConnectionsPerUser(cfg.Engine.MaxConnectionsPerUser),
		WithLogger(logger),
	)
}
