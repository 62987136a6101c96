// Package logger provides structured logging utilities with context propagation.
package logger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const (
	loggerFieldsKey contextKey = iota
	contextLoggerKey
)

// loggerFields is the immutable-by-convention field bag stored in a context.
// Mutations always go through clone so parent contexts are never touched.
type loggerFields struct {
	fields map[string]interface{}
}

func newLoggerFields() *loggerFields {
	return &loggerFields{fields: make(map[string]interface{})}
}

func (lf *loggerFields) clone() *loggerFields {
	out := newLoggerFields()
	for k, v := range lf.fields {
		out.fields[k] = v
	}
	return out
}

func (lf *loggerFields) set(key string, value interface{}) {
	lf.fields[key] = value
}

// toSlice flattens the bag into the key-value slice shape the logger expects.
func (lf *loggerFields) toSlice() []interface{} {
	if len(lf.fields) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(lf.fields)*2)
	for k, v := range lf.fields {
		out = append(out, k, v)
	}
	return out
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return newLoggerFields()
}

func withField(ctx context.Context, key string, value interface{}) context.Context {
	lf := getLoggerFields(ctx).clone()
	lf.set(key, value)
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID attaches request_id to the context logger fields. Empty
// values are ignored, as with all the With* helpers below.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithTraceID attaches trace_id for callers injecting trace IDs by hand
// instead of through OpenTelemetry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return withField(ctx, "trace_id", traceID)
}

// WithSpanID attaches span_id, the manual counterpart to WithTraceID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	if spanID == "" {
		return ctx
	}
	return withField(ctx, "span_id", spanID)
}

// WithUserID attaches user_id for per-user activity tracking.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return withField(ctx, "user_id", userID)
}

// WithTenantID attaches tenant_id for multi-tenant log separation.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return withField(ctx, "tenant_id", tenantID)
}

// WithError attaches error_message and error_type extracted from err.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}

	lf := getLoggerFields(ctx).clone()
	lf.set("error_message", err.Error())
	lf.set("error_type", fmt.Sprintf("%T", err))
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithErrorCode attaches error_code for application-level error taxonomy.
func WithErrorCode(ctx context.Context, code string) context.Context {
	if code == "" {
		return ctx
	}
	return withField(ctx, "error_code", code)
}

// WithFields attaches arbitrary key-value pairs. A trailing key without a
// value is dropped; non-string keys are skipped.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	if len(keysAndValues)%2 != 0 {
		keysAndValues = keysAndValues[:len(keysAndValues)-1]
	}

	lf := getLoggerFields(ctx).clone()
	for i := 0; i < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// ExtractOpenTelemetryFields copies trace_id, span_id, and the sampled flag
// from the active span into the logger fields. Middleware calls this once
// per request when tracing is enabled.
func ExtractOpenTelemetryFields(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx
	}

	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ctx
	}

	lf := getLoggerFields(ctx).clone()
	if spanCtx.HasTraceID() {
		lf.set("trace_id", spanCtx.TraceID().String())
	}
	if spanCtx.HasSpanID() {
		lf.set("span_id", spanCtx.SpanID().String())
	}
	if spanCtx.IsSampled() {
		lf.set("trace_sampled", true)
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// GetContextFields returns the accumulated fields as a key-value slice, or
// nil when none are present.
func GetContextFields(ctx context.Context) []interface{} {
	return getLoggerFields(ctx).toSlice()
}

// GetLogger returns a logger carrying the context's fields. A logger stored
// with WithLogger wins over the derived one.
func GetLogger(ctx context.Context) core.Logger {
	if ctxLogger, ok := ctx.Value(contextLoggerKey).(core.Logger); ok {
		return ctxLogger
	}

	base := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// WithLogger pins a pre-configured logger to the context for reuse across a
// request lifecycle.
func WithLogger(ctx context.Context, log core.Logger) context.Context {
	return context.WithValue(ctx, contextLoggerKey, log)
}
