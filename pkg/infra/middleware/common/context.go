// Package common holds types and helpers shared by the middleware
// subpackages so they can avoid importing each other.
package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	// HeaderXRequestID carries the per-request correlation ID.
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceID carries the distributed trace ID.
	HeaderTraceID = "X-Trace-ID"
)

// RequestIDKey keys the request ID in a context. It is exported so
// packages outside the middleware tree can read the value.
type RequestIDKey struct{}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, requestID)
}

// GetRequestID returns the request ID from the context, or "" when absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey{}).(string)
	return id
}

var fallbackCounter uint64

// GenerateRequestID returns 16 random bytes hex-encoded. When the random
// source fails it degrades to a timestamp-and-counter ID so requests still
// get a usable correlation value.
func GenerateRequestID() string {
	b := make([]byte, 16)
	if n, err := rand.Read(b); err != nil || n != len(b) {
		return fmt.Sprintf("%x-%x", time.Now().Unix(), atomic.AddUint64(&fallbackCounter, 1))
	}
	return hex.EncodeToString(b)
}
