package errors

import (
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/grpc/codes"
)

// serviceRegistry maps service codes to names so code collisions between
// modules are caught at startup.
var (
	serviceRegistry = make(map[int]string)
	serviceMu       sync.RWMutex
)

// RegisterService claims a service code for a named module. Re-registering
// the same code with the same name is a no-op; a different name panics.
func RegisterService(code int, name string) {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if existing, ok := serviceRegistry[code]; ok {
		if existing != name {
			panic(fmt.Sprintf("service code %d already registered by '%s', cannot register for '%s'", code, existing, name))
		}
		return
	}
	serviceRegistry[code] = name
}

// GetServiceName returns the name registered for a service code.
func GetServiceName(code int) (string, bool) {
	serviceMu.RLock()
	defer serviceMu.RUnlock()
	name, ok := serviceRegistry[code]
	return name, ok
}

// GetAllServices returns a copy of the service registry.
func GetAllServices() map[int]string {
	serviceMu.RLock()
	defer serviceMu.RUnlock()

	out := make(map[int]string, len(serviceRegistry))
	for k, v := range serviceRegistry {
		out[k] = v
	}
	return out
}

// ErrnoBuilder assembles and registers an Errno with a fluent API:
//
//	var ErrChunkMissing = errors.NewNotFoundError(ServiceRetrieval, 9).
//	    Message("Chunk not found", "分块不存在").
//	    MustBuild()
type ErrnoBuilder struct {
	service   int
	category  int
	sequence  int
	http      int
	grpc      codes.Code
	messageEN string
	messageZH string
}

// NewBuilder starts a builder for the given code parts. Parts outside the
// AABBCCC layout panic immediately rather than producing a colliding code.
func NewBuilder(service, category, sequence int) *ErrnoBuilder {
	if service < 0 || service > 99 {
		panic(fmt.Sprintf("errno: service code must be 0-99, got %d", service))
	}
	if category < 0 || category > 99 {
		panic(fmt.Sprintf("errno: category code must be 0-99, got %d", category))
	}
	if sequence < 0 || sequence > 999 {
		panic(fmt.Sprintf("errno: sequence must be 0-999, got %d", sequence))
	}
	return &ErrnoBuilder{
		service:  service,
		category: category,
		sequence: sequence,
		http:     http.StatusInternalServerError,
		grpc:     codes.Internal,
	}
}

// HTTP sets the HTTP status.
func (b *ErrnoBuilder) HTTP(status int) *ErrnoBuilder {
	b.http = status
	return b
}

// GRPC sets the gRPC status.
func (b *ErrnoBuilder) GRPC(code codes.Code) *ErrnoBuilder {
	b.grpc = code
	return b
}

// Message sets both language messages.
func (b *ErrnoBuilder) Message(en, zh string) *ErrnoBuilder {
	b.messageEN = en
	b.messageZH = zh
	return b
}

// MessageEN sets the English message.
func (b *ErrnoBuilder) MessageEN(en string) *ErrnoBuilder {
	b.messageEN = en
	return b
}

// MessageZH sets the Chinese message.
func (b *ErrnoBuilder) MessageZH(zh string) *ErrnoBuilder {
	b.messageZH = zh
	return b
}

// Build registers the Errno, failing on a missing English message or a
// duplicate code.
func (b *ErrnoBuilder) Build() (*Errno, error) {
	if b.messageEN == "" {
		return nil, fmt.Errorf("English message is required")
	}

	e := &Errno{
		Code:      MakeCode(b.service, b.category, b.sequence),
		HTTP:      b.http,
		GRPCCode:  b.grpc,
		MessageEN: b.messageEN,
		MessageZH: b.messageZH,
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := errnoRegistry[e.Code]; ok {
		return nil, fmt.Errorf("errno code %d already registered: %s", e.Code, existing.MessageEN)
	}
	errnoRegistry[e.Code] = e
	return e, nil
}

// MustBuild is Build that panics on failure. Meant for package-level vars.
func (b *ErrnoBuilder) MustBuild() *Errno {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Preset builders pairing each category with its conventional HTTP and gRPC
// statuses.

// NewRequestError presets a request/validation error (HTTP 400).
func NewRequestError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryRequest, sequence).
		HTTP(http.StatusBadRequest).
		GRPC(codes.InvalidArgument)
}

// NewNotFoundError presets a resource-not-found error (HTTP 404).
func NewNotFoundError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryResource, sequence).
		HTTP(http.StatusNotFound).
		GRPC(codes.NotFound)
}

// NewConflictError presets a conflict error (HTTP 409).
func NewConflictError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryConflict, sequence).
		HTTP(http.StatusConflict).
		GRPC(codes.AlreadyExists)
}

// NewRateLimitError presets a rate-limit error (HTTP 429).
func NewRateLimitError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryRateLimit, sequence).
		HTTP(http.StatusTooManyRequests).
		GRPC(codes.ResourceExhausted)
}

// NewInternalError presets an internal error (HTTP 500).
func NewInternalError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryInternal, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// NewDatabaseError presets a database error (HTTP 500).
func NewDatabaseError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryDatabase, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// NewCacheError presets a cache error (HTTP 500).
func NewCacheError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryCache, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// NewNetworkError presets a network error (HTTP 503).
func NewNetworkError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryNetwork, sequence).
		HTTP(http.StatusServiceUnavailable).
		GRPC(codes.Unavailable)
}

// NewTimeoutError presets a timeout error (HTTP 504).
func NewTimeoutError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryTimeout, sequence).
		HTTP(http.StatusGatewayTimeout).
		GRPC(codes.DeadlineExceeded)
}

// NewConfigError presets a configuration error (HTTP 500).
func NewConfigError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryConfig, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// One-call variants for the most common presets.

// NewRequestErr registers a request error in one call.
func NewRequestErr(service, sequence int, en, zh string) *Errno {
	return NewRequestError(service, sequence).Message(en, zh).MustBuild()
}

// NewNotFoundErr registers a not-found error in one call.
func NewNotFoundErr(service, sequence int, en, zh string) *Errno {
	return NewNotFoundError(service, sequence).Message(en, zh).MustBuild()
}

// NewConflictErr registers a conflict error in one call.
func NewConflictErr(service, sequence int, en, zh string) *Errno {
	return NewConflictError(service, sequence).Message(en, zh).MustBuild()
}

// NewInternalErr registers an internal error in one call.
func NewInternalErr(service, sequence int, en, zh string) *Errno {
	return NewInternalError(service, sequence).Message(en, zh).MustBuild()
}
