package instrumentation

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider encapsulates the OpenTelemetry meter provider. Metrics are
// exported through the Prometheus exporter and scraped from the dedicated
// metrics server.
type Provider struct {
	config        Config
	meterProvider *metric.MeterProvider
	metrics       *Metrics
	enabled       bool
}

// NewProvider creates a new OpenTelemetry provider with the given
// configuration. When disabled it returns a provider whose metrics recorder
// is a no-op.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{
			config:  config,
			enabled: false,
			metrics: &Metrics{},
		}, nil
	}

	resourceAttrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}
	if hostname, err := os.Hostname(); err == nil {
		resourceAttrs = append(resourceAttrs, semconv.ServiceInstanceID(hostname))
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(config.ServiceName)
	metrics, err := NewMetrics(meter)
	if err != nil {
		if shutdownErr := meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("%w (cleanup also failed: %v)", err, shutdownErr)
		}
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	return &Provider{
		config:        config,
		meterProvider: meterProvider,
		metrics:       metrics,
		enabled:       true,
	}, nil
}

// Metrics returns the metrics recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Enabled returns true if instrumentation is enabled.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending telemetry and releases the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
