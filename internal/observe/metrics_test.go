package observe_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/bleeper/internal/observe"
)

func TestNewMetrics_InstrumentsRecord(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.TranscribeDuration.Record(ctx, 2.5)
	m.ResolveDuration.Record(ctx, 0.001)
	m.RenderDuration.Record(ctx, 0.4)
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	m.MatchedTokens.Add(ctx, 3)
	m.RedactedSeconds.Add(ctx, 1.2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			found[mt.Name] = true
		}
	}
	for _, name := range []string{
		"bleeper.transcribe.duration",
		"bleeper.resolve.duration",
		"bleeper.render.duration",
		"bleeper.runs",
		"bleeper.matched_tokens",
		"bleeper.redacted_seconds",
	} {
		if !found[name] {
			t.Errorf("metric %q was not exported; got %v", name, found)
		}
	}
}
