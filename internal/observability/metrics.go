// internal/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const metricInterval = 30 * time.Second

// InitMetrics installs a global meter provider that pushes to endpoint over
// OTLP/HTTP every 30s. Instruments created before the call are picked up by
// the new provider. With an empty endpoint the global no-op provider stays.
func InitMetrics(ctx context.Context, service, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		slog.Debug("metrics disabled: no OTLP endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	opts, err := metricExporterOptions(endpoint)
	if err != nil {
		return nil, err
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	provider := newMeterProvider(service,
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval)))
	otel.SetMeterProvider(provider)

	slog.Info("metrics enabled", "endpoint", endpoint)
	return provider.Shutdown, nil
}

func newMeterProvider(service string, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
}

// metricExporterOptions keeps the exporter's default /v1/metrics path; a
// path on endpoint belongs to the trace exporter.
func metricExporterOptions(endpoint string) ([]otlpmetrichttp.Option, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q", endpoint)
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return opts, nil
}
