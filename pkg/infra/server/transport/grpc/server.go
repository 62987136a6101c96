package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/kart-io/provenance/pkg/infra/server/transport"
	grpcopts "github.com/kart-io/provenance/pkg/options/server/grpc"
)

// Aliases into pkg/options/server/grpc so transport users need one import.
type (
	Options = grpcopts.Options
	Option  = grpcopts.Option
)

var (
	NewOptions         = grpcopts.NewOptions
	WithAddr           = grpcopts.WithAddr
	WithTimeout        = grpcopts.WithTimeout
	WithMaxRecvMsgSize = grpcopts.WithMaxRecvMsgSize
	WithMaxSendMsgSize = grpcopts.WithMaxSendMsgSize
	WithReflection     = grpcopts.WithReflection
)

var (
	_ transport.Transport     = (*Server)(nil)
	_ transport.GRPCRegistrar = (*Server)(nil)
)

// Server runs a grpc.Server behind the shared transport lifecycle. Services
// registered before Start are bound when the listener comes up.
type Server struct {
	opts     *grpcopts.Options
	server   *grpc.Server
	listener net.Listener
	services []*transport.GRPCServiceDesc
}

// NewServer builds the server and its underlying grpc.Server with the
// configured message size limits.
func NewServer(opts ...grpcopts.Option) *Server {
	options := grpcopts.NewOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Server{
		opts: options,
		server: grpc.NewServer(
			grpc.MaxRecvMsgSize(options.MaxRecvMsgSize),
			grpc.MaxSendMsgSize(options.MaxSendMsgSize),
		),
		services: make([]*transport.GRPCServiceDesc, 0),
	}
}

// Name identifies this transport in logs.
func (s *Server) Name() string {
	return "grpc"
}

// RegisterGRPCService queues a service for binding at Start time.
func (s *Server) RegisterGRPCService(desc *transport.GRPCServiceDesc) error {
	s.services = append(s.services, desc)
	return nil
}

// RegisterService binds a service directly on the underlying grpc.Server,
// bypassing the deferred queue.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.server.RegisterService(desc, impl)
}

// Server exposes the underlying grpc.Server.
func (s *Server) Server() *grpc.Server {
	return s.server
}

// Start binds queued services, opens the listener, and begins serving in
// the background. Returns once the listener is accepting.
func (s *Server) Start(ctx context.Context) error {
	for _, svc := range s.services {
		if desc, ok := svc.ServiceDesc.(*grpc.ServiceDesc); ok {
			s.server.RegisterService(desc, svc.ServiceImpl)
		}
	}

	if s.opts.EnableReflection {
		reflection.Register(s.server)
	}

	var err error
	s.listener, err = net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			errCh <- err
		}
	}()

	// Serve failures after this point surface through Stop or the process
	// exit path; an immediate failure or canceled context is reported here.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Stop drains in-flight RPCs. If the context expires first the server is
// stopped hard.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}
