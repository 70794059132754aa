// Package httpserver assembles the chi router mounting the SSE and REST
// handlers and joins the resulting http.Server to the fx lifecycle,
// grounded on the teacher's infra/server/grpc.Module (Server.Start/Stop
// paired with fx.Lifecycle hooks), adapted from gRPC to net/http.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/notifyhub/sse-engine/config"
	"github.com/notifyhub/sse-engine/internal/handler/middleware"
	"github.com/notifyhub/sse-engine/internal/handler/rest"
	"github.com/notifyhub/sse-engine/internal/handler/sse"
)

// Module assembles the HTTP router and server and joins them to the fx
// lifecycle.
var Module = fx.Module(
	"httpserver",
	fx.Invoke(registerLifecycle),
)

func newRouter(sseHandler *sse.Handler, restHandler *rest.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser(middleware.HeaderUser("X-User-Id")))

	r.Get("/sse/{event_type}", sseHandler.Stream)
	restHandler.Routes(r)

	return r
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger, sseHandler *sse.Handler, restHandler *rest.Handler) {
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newRouter(sseHandler, restHandler),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("httpserver: serve failed", "error", err)
				}
			}()
			log.Info("httpserver: listening", "addr", cfg.HTTP.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
