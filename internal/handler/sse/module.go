package sse

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/config"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
)

// Module provides the SSE stream Handler.
var Module = fx.Module(
	"handler-sse",
	fx.Provide(provideHandler),
)

func provideHandler(cfg *config.Config, mgr *eventmanager.Manager, log *slog.Logger) *Handler {
	return NewHandler(mgr, log, cfg.Engine.IdleHeartbeat)
}
