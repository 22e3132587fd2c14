package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestInitLogger_WritesJSONWithService(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := initLogger(&buf, "catalog", "info")
	logger.Debug("hidden")
	logger.Info("shown", "isbn", "A")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "catalog", line["service"])
	assert.Equal(t, "A", line["isbn"])
}

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "catalog", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	opts, err := exporterOptions("http://collector:4318/v1/traces")
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	_, err = exporterOptions("not a url")
	assert.Error(t, err)
}

func TestInitMetrics_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitMetrics(context.Background(), "web", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMetricExporterOptions(t *testing.T) {
	opts, err := metricExporterOptions("http://collector:4318/v1/traces")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	_, err = metricExporterOptions("collector")
	assert.Error(t, err)
}

func TestMeterProvider_CollectsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := newMeterProvider("catalog", reader)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	counter, err := provider.Meter("librarium/test").Int64Counter("books.deleted")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "books.deleted", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}
