package storage

import (
	"context"
	"time"
)

// Client is the base interface that all storage clients must implement.
// Each backend (MySQL, Milvus, Redis, etc.) wraps its driver in a type
// satisfying this interface so the Manager can treat them uniformly for
// health checking and shutdown.
type Client interface {
	// Name returns the storage type name for identification purposes.
	// This should be a lowercase identifier like "mysql" or "milvus".
	// The name is used for logging, metrics, and health check reporting.
	Name() string

	// Ping checks if the connection to the storage backend is alive.
	// It should perform a lightweight operation to verify connectivity.
	// The context can be used to set timeouts or cancel the ping.
	Ping(ctx context.Context) error

	// Close closes the connection gracefully, releasing all resources.
	// Close should be idempotent and safe to call multiple times.
	Close() error

	// Health returns a HealthChecker function that can be called to
	// check the storage health status. This is useful for integrating
	// with readiness endpoints and monitoring systems.
	Health() HealthChecker
}

// HealthChecker is a function type that performs a health check on a
// storage backend. It captures the client instance so the check can be
// invoked without direct access to the client.
type HealthChecker func() error

// HealthStatus represents the result of a health check operation.
type HealthStatus struct {
	// Name identifies the storage instance being checked.
	// This should match the value returned by Client.Name().
	Name string

	// Healthy indicates whether the storage is functioning properly.
	Healthy bool

	// Latency measures how long the health check took to complete.
	// This can reveal performance degradation even when the backend
	// is technically healthy.
	Latency time.Duration

	// Error contains the error details if the health check failed.
	// This is nil when Healthy is true.
	Error error
}

// Factory is an interface for creating storage clients. It encapsulates
// the client creation logic and allows for dependency injection and
// testing with mock implementations.
type Factory interface {
	// Create creates and initializes a new storage client.
	// The returned client should be ready to use (connected and verified).
	Create(ctx context.Context) (Client, error)
}
