// ABOUTME: OpenTelemetry SDK pipeline wiring metric and trace exporters (stdout, OTLP, Prometheus)
// ABOUTME: Used by the command line tools to make view telemetry visible

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Pipeline owns the SDK meter and tracer providers built from a Config.
type Pipeline struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider

	// Registry holds the scraped metrics when the prometheus exporter is on
	Registry *prometheus.Registry
}

// NewPipeline builds SDK providers exporting to the configured exporters.
// stdout exporters write to w.
func NewPipeline(ctx context.Context, cfg Config, w io.Writer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	var metricOpts []sdkmetric.Option
	var traceOpts []sdktrace.TracerProviderOption
	var registry *prometheus.Registry

	for _, name := range cfg.Exporters {
		switch name {
		case "stdout":
			mexp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			metricOpts = append(metricOpts, sdkmetric.WithReader(
				sdkmetric.NewPeriodicReader(mexp, sdkmetric.WithInterval(cfg.MetricInterval)),
			))

			texp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
			}
			traceOpts = append(traceOpts, sdktrace.WithBatcher(texp))

		case "otlp":
			// OTLP carries traces only in this setup
			texp, err := otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
			}
			traceOpts = append(traceOpts, sdktrace.WithBatcher(texp))

		case "prometheus":
			registry = prometheus.NewRegistry()
			reader, err := otelprom.New(otelprom.WithRegisterer(registry))
			if err != nil {
				return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
			}
			metricOpts = append(metricOpts, sdkmetric.WithReader(reader))
		}
	}

	return &Pipeline{
		MeterProvider:  sdkmetric.NewMeterProvider(metricOpts...),
		TracerProvider: sdktrace.NewTracerProvider(traceOpts...),
		Registry:       registry,
	}, nil
}

// Telemetry returns a Telemetry recording through the pipeline.
func (p *Pipeline) Telemetry(cfg Config) (Telemetry, error) {
	cfg.Enabled = true
	return New(cfg, WithMeterProvider(p.MeterProvider), WithTracerProvider(p.TracerProvider))
}

// MetricsHandler serves the prometheus registry, or nil when the prometheus
// exporter is not configured.
func (p *Pipeline) MetricsHandler() http.Handler {
	if p.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops both providers.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
