package cmd

import (
	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/config"
	"github.com/notifyhub/sse-engine/internal/domain/connection"
	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/handler/httpserver"
	"github.com/notifyhub/sse-engine/internal/handler/rest"
	"github.com/notifyhub/sse-engine/internal/handler/sse"
	"github.com/notifyhub/sse-engine/internal/ingress"
	"github.com/notifyhub/sse-engine/internal/platform/logging"
	"github.com/notifyhub/sse-engine/internal/platform/telemetry"
	"github.com/notifyhub/sse-engine/internal/service"
	"github.com/notifyhub/sse-engine/internal/store/postgres"
)

// NewApp assembles the full delivery engine from its per-package fx.Modules,
// grounded on the teacher's cmd/fx.go (one fx.New call wiring config, the
// store module, the service module, and the transport module).
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			logging.New,
		),
		telemetry.Module,
		postgres.Module,
		event.Module,
		connection.Module,
		eventmanager.Module,
		ingress.Module,
		service.Module,
		sse.Module,
		rest.Module,
		httpserver.Module,
	)
}
