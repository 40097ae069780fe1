package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names recorded for provider operations
const (
	MetricOperations        = "integration.operations"
	MetricOperationDuration = "integration.operation.duration"
)

// Attribute keys shared by driver spans and metrics
const (
	AttrProvider   = attribute.Key("integration.provider")
	AttrOperation  = attribute.Key("integration.operation")
	AttrResultKind = attribute.Key("integration.result_kind")
	AttrTenantID   = attribute.Key("tenant.id")
)

// durationBuckets cover fast cached reads up to the SOAP timeout
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// DriverMetrics counts provider operations by outcome and times them.
type DriverMetrics struct {
	operations *Counter
	duration   *Histogram
}

// NewDriverMetrics registers the instruments on meter.
func NewDriverMetrics(meter metric.Meter) (*DriverMetrics, error) {
	operations, err := NewCounter(meter, MetricOperations, "Provider operations by result kind", "{operation}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        MetricOperationDuration,
		Description: "Provider operation latency",
		Unit:        "s",
		Boundaries:  durationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &DriverMetrics{operations: operations, duration: duration}, nil
}

// Record counts one finished operation. Tenant ids stay out of metric
// attributes to keep cardinality bounded.
func (m *DriverMetrics) Record(ctx context.Context, provider, operation, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrProvider.String(provider),
		AttrOperation.String(operation),
		AttrResultKind.String(kind),
	}
	m.operations.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, attrs[:2]...)
}
