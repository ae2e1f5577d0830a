package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"secureshred/internal/config"
)

func resetProvider(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestInitWritesSpans(t *testing.T) {
	resetProvider(t)
	path := filepath.Join(t.TempDir(), "trace", "spans.jsonl")

	shutdown, err := Init(config.TelemetryConfig{Enabled: true, File: path, ServiceName: "secureshred-test"})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "job.run")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job.run"`)
	assert.Contains(t, string(data), "secureshred-test")
}

func TestInitDisabled(t *testing.T) {
	resetProvider(t)
	shutdown, err := Init(config.TelemetryConfig{ServiceName: "x"})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "wipe.target")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}
