// Package transport provides transport layer interfaces for HTTP and gRPC.
package transport

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/provenance/pkg/infra/server/service"
)

// Transport represents a transport protocol server.
type Transport interface {
	// Start starts the transport server.
	Start(ctx context.Context) error
	// Stop stops the transport server gracefully.
	Stop(ctx context.Context) error
	// Name returns the transport name (e.g., "http", "grpc").
	Name() string
}

// HTTPRegistrar is the interface for registering HTTP routes.
type HTTPRegistrar interface {
	// RegisterHTTPHandler registers an HTTP handler for the given service.
	RegisterHTTPHandler(svc service.Service, handler HTTPHandler) error
}

// GRPCRegistrar is the interface for registering gRPC services.
type GRPCRegistrar interface {
	// RegisterGRPCService registers a gRPC service.
	RegisterGRPCService(desc *GRPCServiceDesc) error
}

// HTTPHandler represents an HTTP handler that can register routes.
type HTTPHandler interface {
	// RegisterRoutes registers HTTP routes on the given engine.
	RegisterRoutes(engine *gin.Engine)
}

// GRPCServiceDesc describes a gRPC service for registration.
type GRPCServiceDesc struct {
	// ServiceDesc is the gRPC service descriptor.
	ServiceDesc interface{}
	// ServiceImpl is the gRPC service implementation.
	ServiceImpl interface{}
}

// Validator is the interface for request validation.
type Validator interface {
	// Validate validates the given struct.
	Validate(i interface{}) error
}
