package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracingopts "github.com/kart-io/provenance/pkg/options/tracing"
)

func TestNewWithNoopExporter(t *testing.T) {
	p, err := New(&Config{
		ServiceName: "retrieval-test",
		Exporter:    tracingopts.ExporterNoop,
		SampleRate:  1.0,
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Shutdown(context.Background())) }()

	_, span := p.Tracer("test").Start(context.Background(), "retrieve")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	assert.NoError(t, p.ForceFlush(context.Background()))
}

func TestNewAppliesSampleRate(t *testing.T) {
	// 采样率 0 时 span 仍有合法上下文，只是不采样
	p, err := New(&Config{
		ServiceName: "retrieval-test",
		Exporter:    tracingopts.ExporterNoop,
		SampleRate:  0,
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Shutdown(context.Background())) }()

	_, span := p.Tracer("test").Start(context.Background(), "retrieve")
	assert.True(t, span.SpanContext().IsValid())
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Exporter: tracingopts.ExporterNoop})
	assert.Error(t, err, "service name is required")

	_, err = New(&Config{ServiceName: "x", Exporter: "jaeger"})
	assert.Error(t, err)
}
