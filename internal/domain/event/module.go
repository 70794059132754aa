package event

import "go.uber.org/fx"

// Module provides the process-wide event Registry, pre-populated with this
// engine's registered event classes (spec §4.1: registration must complete
// before the first event flows).
var Module = fx.Module(
	"event-registry",
	fx.Provide(provideRegistry),
)

func provideRegistry() *Registry {
	reg := NewRegistry()
	RegisterDefaults(reg)
	return reg
}
