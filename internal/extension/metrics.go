package extension

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/attestor-io/attestor/internal/extension")

var (
	invocationsTotal metric.Int64Counter
	handlerFailures  metric.Int64Counter
)

func init() {
	var err error
	invocationsTotal, err = meter.Int64Counter("extension.invocations.total",
		metric.WithDescription("Total slot invocations"))
	if err != nil {
		invocationsTotal, _ = meter.Int64Counter("extension.invocations.total.fallback")
	}

	handlerFailures, err = meter.Int64Counter("extension.handler.failures",
		metric.WithDescription("Isolated handler failures during slot invocation"))
	if err != nil {
		handlerFailures, _ = meter.Int64Counter("extension.handler.failures.fallback")
	}
}
