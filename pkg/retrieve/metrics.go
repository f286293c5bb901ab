package retrieve

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var retrievedBytes metric.Int64Counter

func init() {
	retrievedBytes, _ = otel.Meter("cairn.importer").Int64Counter(
		"cairn.retrieval.bytes",
		metric.WithDescription("Bytes fetched from source URLs"),
		metric.WithUnit("By"),
	)
}

// countBytes feeds the retrieval byte counter after a successful fetch.
func countBytes(ctx context.Context, strategy string, n int64) {
	if retrievedBytes == nil || n <= 0 {
		return
	}
	retrievedBytes.Add(ctx, n, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}
