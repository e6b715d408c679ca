package receipt

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/attestor-io/attestor/internal/receipt")

var (
	receiptsTotal   metric.Int64Counter
	persistFailures metric.Int64Counter
)

func init() {
	var err error
	receiptsTotal, err = meter.Int64Counter("receipts.built.total",
		metric.WithDescription("Receipts assembled and signed"))
	if err != nil {
		receiptsTotal, _ = meter.Int64Counter("receipts.built.total.fallback")
	}

	persistFailures, err = meter.Int64Counter("receipts.persist.failures",
		metric.WithDescription("Receipts built but not durably stored"))
	if err != nil {
		persistFailures, _ = meter.Int64Counter("receipts.persist.failures.fallback")
	}
}
