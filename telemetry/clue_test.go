package telemetry_test

import (
	"testing"

	"github.com/agentcore-ai/agentcore/telemetry"
)

func TestClueImplementsInterfaces(t *testing.T) {
	var _ telemetry.Logger = telemetry.NewClueLogger("test-component")
	var _ telemetry.Metrics = telemetry.NewClueMetrics("test-meter")
	var _ telemetry.Tracer = telemetry.NewClueTracer("test-tracer")
}

func TestClueMetrics_RepeatedCallsWithSameNameDoNotPanic(t *testing.T) {
	metrics := telemetry.NewClueMetrics("test-meter")

	// Repeated calls for the same metric name go through the instrument
	// cache; this test checks only that they do not panic.
	for i := 0; i < 3; i++ {
		metrics.IncCounter("requests.total", 1, "route", "run")
		metrics.RecordTimer("requests.latency", 0, "route", "run")
		metrics.RecordGauge("pool.size", float64(i), "route", "run")
	}
}
