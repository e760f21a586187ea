// Package observe provides application-wide observability primitives for
// bleeper: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint when the CLI runs with a metrics
// listener enabled. Tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all bleeper metrics.
const meterName = "github.com/MrWong99/bleeper"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// ResolveDuration tracks match-resolution latency.
	ResolveDuration metric.Float64Histogram

	// RenderDuration tracks tone overlay plus export latency.
	RenderDuration metric.Float64Histogram

	// Runs counts redaction runs. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Runs metric.Int64Counter

	// MatchedTokens counts transcript tokens that matched the target set.
	MatchedTokens metric.Int64Counter

	// RedactedSeconds accumulates the total audio time overlaid with a tone.
	RedactedSeconds metric.Float64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are generous because batch transcription of long recordings is
// legitimately slow.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscribeDuration, err = m.Float64Histogram("bleeper.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("bleeper.resolve.duration",
		metric.WithDescription("Latency of match resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("bleeper.render.duration",
		metric.WithDescription("Latency of tone overlay and export."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("bleeper.runs",
		metric.WithDescription("Number of redaction runs."),
	); err != nil {
		return nil, err
	}
	if met.MatchedTokens, err = m.Int64Counter("bleeper.matched_tokens",
		metric.WithDescription("Number of transcript tokens that matched the target set."),
	); err != nil {
		return nil, err
	}
	if met.RedactedSeconds, err = m.Float64Counter("bleeper.redacted_seconds",
		metric.WithDescription("Total audio time overlaid with a tone."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}
