// Package tracing wires the OpenTelemetry SDK into the process: one tracer
// provider backed by an OTLP gRPC exporter, installed globally so every
// component picks it up through otel.Tracer.
package tracing

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	tracingopts "github.com/kart-io/provenance/pkg/options/tracing"
)

// Config describes the provider to build. ServiceName is required; the rest
// fall back to the option defaults.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
	Endpoint       string
	SampleRate     float64
}

// Provider owns the SDK tracer provider and its exporter lifecycle.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New builds a tracer provider from cfg and installs it as the global
// provider together with W3C trace context propagation.
func New(cfg *Config) (*Provider, error) {
	if cfg == nil || cfg.ServiceName == "" {
		return nil, fmt.Errorf("tracing: service name is required")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Infow("tracing initialized",
		"service", cfg.ServiceName,
		"exporter", cfg.Exporter,
		"sample_rate", cfg.SampleRate,
	)
	return &Provider{tp: tp}, nil
}

func newExporter(cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case tracingopts.ExporterOTLP:
		conn, err := grpc.NewClient(cfg.Endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, fmt.Errorf("tracing: dial collector %s: %w", cfg.Endpoint, err)
		}
		exporter, err := otlptrace.New(context.Background(),
			otlptracegrpc.NewClient(otlptracegrpc.WithGRPCConn(conn)),
		)
		if err != nil {
			return nil, fmt.Errorf("tracing: create otlp exporter: %w", err)
		}
		return exporter, nil
	case tracingopts.ExporterNoop:
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("tracing: unsupported exporter: %s", cfg.Exporter)
	}
}

// Tracer returns a named tracer from this provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// ForceFlush exports all buffered spans.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// noopExporter drops spans, used when no collector is configured.
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                             { return nil }
