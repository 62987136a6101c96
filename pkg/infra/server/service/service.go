// Package service defines the contracts for the business service layer.
// Handlers translate transport requests into service calls; the logic
// itself lives behind these interfaces.
package service

import "context"

// Service is the marker every business service implements.
type Service interface {
	// ServiceName identifies the service when it is registered with a
	// transport or container.
	ServiceName() string
}

// Registrable is a Service that can bind itself to transports.
type Registrable interface {
	Service
}

// HealthChecker reports whether a service is able to serve traffic.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Initializable runs one-time setup before the service takes traffic.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable releases resources during shutdown.
type Closeable interface {
	Close(ctx context.Context) error
}
