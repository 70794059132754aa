package postgres

import (
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/notifyhub/sse-engine/config"
	"github.com/notifyhub/sse-engine/internal/store"
)

// Module wires the Postgres-backed EventStore, grounded on the teacher's
// per-package fx.Module convention (service.Module, grpchandler.Module).
var Module = fx.Module(
	"store-postgres",
	fx.Provide(
		provideDB,
		fx.Annotate(
			provideRepository,
			fx.As(new(store.EventStore)),
		),
	),
)

func provideDB(cfg *config.Config) (*gorm.DB, error) {
	return Connect(cfg.Postgres.DSN)
}

// provideRepository adapts NewRepository's variadic Option tail to a plain
// fx constructor signature (fx does not resolve variadic parameters).
func provideRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return NewRepository(db, logger)
}
