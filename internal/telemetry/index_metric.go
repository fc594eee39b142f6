package internaltelemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// IndexMetrics holds the metric instruments for an index manager.
type IndexMetrics struct {
	OpsStartedCounter      metric.Int64Counter
	OpsHandledCounter      metric.Int64Counter
	OpLatencyHistogram     metric.Int64Histogram
	ActiveOpsUpDownCounter metric.Int64UpDownCounter
	// StructuralEventsCounter counts splits, borrows, merges and root changes.
	StructuralEventsCounter metric.Int64Counter
	KeysGauge               metric.Int64Gauge
}

// NewIndexMetrics creates and registers all the metrics for an index manager.
func NewIndexMetrics(meter metric.Meter) (*IndexMetrics, error) {
	opsStartedCounter, err := meter.Int64Counter(
		"bptree.index.ops.started_total",
		metric.WithDescription("Total number of index operations started."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	opsHandledCounter, err := meter.Int64Counter(
		"bptree.index.ops.handled_total",
		metric.WithDescription("Total number of index operations completed."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	opLatencyHistogram, err := meter.Int64Histogram(
		"bptree.index.ops.duration",
		metric.WithDescription("The latency of index operations."),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, err
	}

	activeOpsUpDownCounter, err := meter.Int64UpDownCounter(
		"bptree.index.ops.active",
		metric.WithDescription("Number of index operations in flight."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	structuralEventsCounter, err := meter.Int64Counter(
		"bptree.index.structural_events_total",
		metric.WithDescription("Splits, borrows, merges and root changes."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	keysGauge, err := meter.Int64Gauge(
		"bptree.index.keys",
		metric.WithDescription("Number of keys held by the index."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &IndexMetrics{
		OpsStartedCounter:       opsStartedCounter,
		OpsHandledCounter:       opsHandledCounter,
		OpLatencyHistogram:      opLatencyHistogram,
		ActiveOpsUpDownCounter:  activeOpsUpDownCounter,
		StructuralEventsCounter: structuralEventsCounter,
		KeysGauge:               keysGauge,
	}, nil
}
