package rest

import "go.uber.org/fx"

// Module provides the REST notification-management Handler.
var Module = fx.Module(
	"handler-rest",
	fx.Provide(NewHandler),
)
