// Package observe provides application-wide observability primitives for
// Didaxa: OpenTelemetry metrics, distributed tracing, and structured logging
// helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Didaxa metrics.
const meterName = "github.com/didaxa/didaxa"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// SegmentDuration tracks document segmentation latency.
	SegmentDuration metric.Float64Histogram

	// GenerateDuration tracks generator (LLM) turn latency. Use with
	// attribute: attribute.String("role", ...)
	GenerateDuration metric.Float64Histogram

	// --- Counters ---

	// Interruptions counts user interruptions across all sessions.
	Interruptions metric.Int64Counter

	// Reallocations counts role-queue reallocations. Use with attribute:
	//   attribute.String("intent", ...)
	Reallocations metric.Int64Counter

	// StabilityBlocks counts reallocation requests denied by the
	// bounded-delay window.
	StabilityBlocks metric.Int64Counter

	// GeneratorErrors counts generator failures. Use with attribute:
	//   attribute.String("kind", "timeout"|"error")
	GeneratorErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live tutoring sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// embedding and generation round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SegmentDuration, err = m.Float64Histogram("didaxa.segment.duration",
		metric.WithDescription("Latency of document segmentation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerateDuration, err = m.Float64Histogram("didaxa.generate.duration",
		metric.WithDescription("Latency of generator turns by role."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Interruptions, err = m.Int64Counter("didaxa.interruptions",
		metric.WithDescription("Total user interruptions."),
	); err != nil {
		return nil, err
	}
	if met.Reallocations, err = m.Int64Counter("didaxa.reallocations",
		metric.WithDescription("Total role-queue reallocations by intent."),
	); err != nil {
		return nil, err
	}
	if met.StabilityBlocks, err = m.Int64Counter("didaxa.stability.blocks",
		metric.WithDescription("Reallocation requests denied by the bounded-delay window."),
	); err != nil {
		return nil, err
	}
	if met.GeneratorErrors, err = m.Int64Counter("didaxa.generator.errors",
		metric.WithDescription("Generator failures by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("didaxa.sessions.active",
		metric.WithDescription("Number of live tutoring sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneration is a convenience method that records one generator turn's
// latency with the standard role attribute.
func (m *Metrics) RecordGeneration(ctx context.Context, role string, seconds float64) {
	m.GenerateDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("role", role)),
	)
}

// RecordGeneratorError is a convenience method that records one generator
// failure by kind.
func (m *Metrics) RecordGeneratorError(ctx context.Context, kind string) {
	m.GeneratorErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordReallocation is a convenience method that records one queue
// reallocation by intent.
func (m *Metrics) RecordReallocation(ctx context.Context, intent string) {
	m.Reallocations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("intent", intent)),
	)
}
