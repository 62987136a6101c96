// Package logger provides context-aware structured logging helpers.
package logger

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/kart-io/logger/core"
)

// ContextLogger binds a core.Logger to the context it was derived from, so
// request-scoped fields ride along automatically. Safe for concurrent use.
type ContextLogger struct {
	ctx    context.Context
	logger core.Logger
}

// NewContextLogger derives a logger carrying all fields stored in ctx.
func NewContextLogger(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: GetLogger(ctx)}
}

// WithContext rebinds to a new context, picking up its fields.
func (cl *ContextLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: GetLogger(ctx)}
}

// WithFields appends fields on top of the context fields.
func (cl *ContextLogger) WithFields(fields ...interface{}) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Context returns the bound context.
func (cl *ContextLogger) Context() context.Context {
	return cl.ctx
}

// Logger returns the underlying core.Logger.
func (cl *ContextLogger) Logger() core.Logger {
	return cl.logger
}

// Leveled logging, forwarded to the underlying logger.

func (cl *ContextLogger) Debug(msg string) { cl.logger.Debug(msg) }
func (cl *ContextLogger) Info(msg string)  { cl.logger.Info(msg) }
func (cl *ContextLogger) Warn(msg string)  { cl.logger.Warn(msg) }
func (cl *ContextLogger) Error(msg string) { cl.logger.Error(msg) }
func (cl *ContextLogger) Fatal(msg string) { cl.logger.Fatal(msg) }

func (cl *ContextLogger) Debugf(format string, args ...interface{}) { cl.logger.Debugf(format, args...) }
func (cl *ContextLogger) Infof(format string, args ...interface{})  { cl.logger.Infof(format, args...) }
func (cl *ContextLogger) Warnf(format string, args ...interface{})  { cl.logger.Warnf(format, args...) }
func (cl *ContextLogger) Errorf(format string, args ...interface{}) { cl.logger.Errorf(format, args...) }
func (cl *ContextLogger) Fatalf(format string, args ...interface{}) { cl.logger.Fatalf(format, args...) }

func (cl *ContextLogger) Debugw(msg string, keysAndValues ...interface{}) {
	cl.logger.Debugw(msg, keysAndValues...)
}

func (cl *ContextLogger) Infow(msg string, keysAndValues ...interface{}) {
	cl.logger.Infow(msg, keysAndValues...)
}

func (cl *ContextLogger) Warnw(msg string, keysAndValues ...interface{}) {
	cl.logger.Warnw(msg, keysAndValues...)
}

func (cl *ContextLogger) Errorw(msg string, keysAndValues ...interface{}) {
	cl.logger.Errorw(msg, keysAndValues...)
}

func (cl *ContextLogger) Fatalw(msg string, keysAndValues ...interface{}) {
	cl.logger.Fatalw(msg, keysAndValues...)
}

// errorLogFields builds the structured fields for an error log entry.
// skip counts stack frames above captureStackTrace to omit.
func errorLogFields(err error, captureStack bool, skip int) []interface{} {
	fields := []interface{}{
		"error_message", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}
	if captureStack {
		fields = append(fields, "stack_trace", captureStackTrace(skip))
	}
	return fields
}

// ErrorWithError logs err with structured error fields and an optional
// stack trace.
func (cl *ContextLogger) ErrorWithError(msg string, err error, captureStack bool) {
	cl.logger.Errorw(msg, errorLogFields(err, captureStack, 4)...)
}

func captureStackTrace(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%s:%d %s", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return builder.String()
}

// LogError logs err against the context logger with structured fields.
func LogError(ctx context.Context, msg string, err error, captureStack bool) {
	GetLogger(ctx).Errorw(msg, errorLogFields(err, captureStack, 3)...)
}

// LogInfo logs an info message against the context logger.
func LogInfo(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Infow(msg, keysAndValues...)
}

// LogDebug logs a debug message against the context logger.
func LogDebug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Debugw(msg, keysAndValues...)
}

// LogWarn logs a warning against the context logger.
func LogWarn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	GetLogger(ctx).Warnw(msg, keysAndValues...)
}

// UnwrapError walks the Unwrap() error chain and collects every message,
// outermost first. Multi-errors (Unwrap() []error) stop the walk at their
// own message.
func UnwrapError(err error) []string {
	if err == nil {
		return nil
	}

	var messages []string
	for err != nil {
		messages = append(messages, err.Error())

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return messages
}

// LogErrorChain logs err together with its full unwrapped chain.
func LogErrorChain(ctx context.Context, msg string, err error, captureStack bool) {
	fields := []interface{}{
		"error_message", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
		"error_chain", UnwrapError(err),
	}
	if captureStack {
		fields = append(fields, "stack_trace", captureStackTrace(2))
	}
	GetLogger(ctx).Errorw(msg, fields...)
}

// ContextualLoggerFunc resolves a logger from a context, letting call
// sites take the resolution strategy as a dependency.
type ContextualLoggerFunc func(ctx context.Context) core.Logger

// DefaultContextualLogger resolves through GetLogger.
var DefaultContextualLogger ContextualLoggerFunc = GetLogger

// SetGlobalContextualLogger swaps the resolution strategy, mainly for
// tests. A nil fn is ignored.
func SetGlobalContextualLogger(fn ContextualLoggerFunc) {
	if fn != nil {
		DefaultContextualLogger = fn
	}
}

// Must panics when logger construction failed.
func Must(log core.Logger, err error) core.Logger {
	if err != nil {
		panic(err)
	}
	return log
}

// MustInit initializes the global logger from opts, panicking on failure.
func MustInit(opts interface{ Init() error }) {
	if err := opts.Init(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

// SyncGlobal flushes buffered log entries before shutdown. The underlying
// logger package has no sync hook yet, so this is currently a no-op.
func SyncGlobal() error {
	return nil
}
