package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
)

// Module provides the process-wide metric.MeterProvider every package's
// instruments attach to.
var Module = fx.Module(
	"telemetry",
	fx.Provide(
		fx.Annotate(
			NewMeterProvider,
			fx.As(new(metric.MeterProvider)),
		),
	),
)
