// Package server implements a multi-protocol server framework where HTTP
// and gRPC transports share one lifecycle.
package server

import "context"

// Lifecycle is the minimal start/stop contract every transport satisfies.
type Lifecycle interface {
	// Start begins serving and blocks until the server is ready or fails.
	Start(ctx context.Context) error
	// Stop shuts the server down gracefully within the context deadline.
	Stop(ctx context.Context) error
}

// Server is a runnable transport; an alias kept for readability at call
// sites.
type Server = Lifecycle

// Runnable is a named lifecycle, the unit the composite server manages.
type Runnable interface {
	Lifecycle
	// Name identifies the component in logs and registries.
	Name() string
}
