package telemetry

import (
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/notifyhub/sse-engine/config"
)

// NewMeterProvider builds the process-wide MeterProvider the engine's
// counters and gauges attach to. It holds a ManualReader rather than a
// periodic network exporter, so export wiring is left to whatever collector
// endpoint a deployment fronts it with via a future reader swap.
func NewMeterProvider(cfg *config.Config) *sdkmetric.MeterProvider {
	res := resource.NewSchemaless(semconv.ServiceName(cfg.Telemetry.ServiceName))
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
}
