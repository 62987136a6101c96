package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/provenance/pkg/infra/server/service"
	"github.com/kart-io/provenance/pkg/infra/server/transport"
	"github.com/kart-io/provenance/pkg/infra/server/transport/grpc"
	"github.com/kart-io/provenance/pkg/infra/server/transport/http"
	options "github.com/kart-io/provenance/pkg/options/server"
)

// Aliases into pkg/options/server so callers only import this package.
type (
	Options = options.Options
	Option  = options.Option
	Mode    = options.Mode
)

const (
	ModeHTTPOnly = options.ModeHTTPOnly
	ModeGRPCOnly = options.ModeGRPCOnly
	ModeBoth     = options.ModeBoth
)

var NewOptions = options.NewOptions

var (
	WithMode            = options.WithMode
	WithHTTPOptions     = options.WithHTTPOptions
	WithGRPCOptions     = options.WithGRPCOptions
	WithMiddleware      = options.WithMiddleware
	WithShutdownTimeout = options.WithShutdownTimeout
)

// Manager owns the HTTP and gRPC transports plus any custom Runnables and
// drives them through one start/stop sequence.
type Manager struct {
	opts       *options.Options
	registry   *Registry
	httpServer *http.Server
	grpcServer *grpc.Server
	servers    []Runnable
	mu         sync.Mutex
	started    bool
}

// NewManager builds a manager, creating only the transports the configured
// mode enables.
func NewManager(opts ...options.Option) *Manager {
	serverOpts := options.NewOptions()
	for _, opt := range opts {
		opt(serverOpts)
	}

	m := &Manager{
		opts:     serverOpts,
		registry: NewRegistry(),
		servers:  make([]Runnable, 0),
	}

	if serverOpts.EnableHTTP() && serverOpts.HTTP != nil {
		m.httpServer = http.NewServer(serverOpts.HTTP, serverOpts.Middleware)
	}
	if serverOpts.EnableGRPC() && serverOpts.GRPC != nil {
		m.grpcServer = grpc.NewServer(
			grpc.WithAddr(serverOpts.GRPC.Addr),
			grpc.WithTimeout(serverOpts.GRPC.Timeout),
			grpc.WithMaxRecvMsgSize(serverOpts.GRPC.MaxRecvMsgSize),
			grpc.WithMaxSendMsgSize(serverOpts.GRPC.MaxSendMsgSize),
			grpc.WithReflection(serverOpts.GRPC.EnableReflection),
		)
	}

	return m
}

// Registry returns the service registry backing this manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// HTTPServer returns the HTTP transport, or nil when HTTP is disabled.
func (m *Manager) HTTPServer() *http.Server {
	return m.httpServer
}

// GRPCServer returns the gRPC transport, or nil when gRPC is disabled.
func (m *Manager) GRPCServer() *grpc.Server {
	return m.grpcServer
}

// RegisterService registers a service exposed over both transports.
func (m *Manager) RegisterService(svc service.Service, httpHandler transport.HTTPHandler, grpcDesc *transport.GRPCServiceDesc) error {
	return m.registry.RegisterService(svc, httpHandler, grpcDesc)
}

// RegisterHTTP registers a service exposed over HTTP only.
func (m *Manager) RegisterHTTP(svc service.Service, handler transport.HTTPHandler) error {
	return m.registry.RegisterHTTP(svc, handler)
}

// RegisterGRPC registers a service exposed over gRPC only.
func (m *Manager) RegisterGRPC(svc service.Service, desc *transport.GRPCServiceDesc) error {
	return m.registry.RegisterGRPC(svc, desc)
}

// AddServer attaches a custom Runnable to the managed lifecycle.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

func (m *Manager) applyRegistry() error {
	if m.httpServer != nil {
		if err := m.registry.ApplyToHTTP(m.httpServer); err != nil {
			return fmt.Errorf("failed to apply HTTP handlers: %w", err)
		}
	}
	if m.grpcServer != nil {
		if err := m.registry.ApplyToGRPC(m.grpcServer); err != nil {
			return fmt.Errorf("failed to apply gRPC services: %w", err)
		}
	}
	return nil
}

func (m *Manager) initServices(ctx context.Context) error {
	for _, svc := range m.registry.GetAllServices() {
		if init, ok := svc.(service.Initializable); ok {
			if err := init.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize service %s: %w", svc.ServiceName(), err)
			}
		}
	}
	return nil
}

// Start binds handlers, initializes services, then brings transports up in
// order: HTTP, gRPC, custom servers. A failure rolls back everything that
// already started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("server manager already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.applyRegistry(); err != nil {
		return err
	}
	if err := m.initServices(ctx); err != nil {
		return err
	}

	if m.httpServer != nil {
		if err := m.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		logger.Infow("HTTP server started", "addr", m.opts.HTTP.Addr)
	}

	if m.grpcServer != nil {
		if err := m.grpcServer.Start(ctx); err != nil {
			if m.httpServer != nil {
				_ = m.httpServer.Stop(ctx)
			}
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
		logger.Infow("gRPC server started", "addr", m.opts.GRPC.Addr)
	}

	for _, server := range m.servers {
		if err := server.Start(ctx); err != nil {
			if m.grpcServer != nil {
				_ = m.grpcServer.Stop(ctx)
			}
			if m.httpServer != nil {
				_ = m.httpServer.Stop(ctx)
			}
			return fmt.Errorf("failed to start server %s: %w", server.Name(), err)
		}
		logger.Infow("Custom server started", "name", server.Name())
	}

	return nil
}

// Stop shuts everything down in reverse order of Start and closes the
// registered services. All components are attempted even when some fail.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var errs []error

	for _, server := range m.servers {
		if err := server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", server.Name(), err))
		}
	}

	if m.httpServer != nil {
		if err := m.httpServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
		}
		logger.Info("HTTP server stopped")
	}

	if m.grpcServer != nil {
		if err := m.grpcServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop gRPC server: %w", err))
		}
		logger.Info("gRPC server stopped")
	}

	for _, svc := range m.registry.GetAllServices() {
		if closer, ok := svc.(service.Closeable); ok {
			if err := closer.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to close service %s: %w", svc.ServiceName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// Run starts all servers and blocks until SIGINT or SIGTERM, then shuts
// down within the configured timeout.
func (m *Manager) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), m.opts.ShutdownTimeout)
	defer shutdownCancel()

	return m.Stop(shutdownCtx)
}

// Wait confirms the manager has started with at least one server
// configured. Transports listen before Start returns, so no further probing
// is needed.
func (m *Manager) Wait(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return fmt.Errorf("server manager not started")
	}
	if m.httpServer == nil && m.grpcServer == nil && len(m.servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	logger.Info("All servers ready")
	return nil
}
