// Package server provides unified server configuration options.
package server

import (
	"fmt"
	"time"

	grpcopts "github.com/kart-io/provenance/pkg/options/server/grpc"
	httpopts "github.com/kart-io/provenance/pkg/options/server/http"

	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// Mode determines which transports the server manager runs.
type Mode string

const (
	// ModeHTTPOnly runs only the HTTP server.
	ModeHTTPOnly Mode = "http"
	// ModeGRPCOnly runs only the gRPC server.
	ModeGRPCOnly Mode = "grpc"
	// ModeBoth runs both HTTP and gRPC servers.
	ModeBoth Mode = "both"
)

// Options contains server manager configuration.
type Options struct {
	// Mode 决定启用哪些传输层。
	Mode Mode `json:"mode" mapstructure:"mode"`
	// HTTP HTTP 服务器配置。
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`
	// GRPC gRPC 服务器配置。
	GRPC *grpcopts.Options `json:"grpc" mapstructure:"grpc"`
	// Middleware HTTP 中间件配置。
	Middleware *mwopts.Options `json:"middleware" mapstructure:"middleware"`
	// ShutdownTimeout 优雅关闭超时。
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Mode:            ModeBoth,
		HTTP:            httpopts.NewOptions(),
		GRPC:            grpcopts.NewOptions(),
		Middleware:      mwopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// WithMode sets the server mode.
func WithMode(mode Mode) Option {
	return func(o *Options) { o.Mode = mode }
}

// WithHTTPOptions sets the HTTP server options.
func WithHTTPOptions(opts *httpopts.Options) Option {
	return func(o *Options) { o.HTTP = opts }
}

// WithGRPCOptions sets the gRPC server options.
func WithGRPCOptions(opts *grpcopts.Options) Option {
	return func(o *Options) { o.GRPC = opts }
}

// WithMiddleware sets the middleware options.
func WithMiddleware(opts *mwopts.Options) Option {
	return func(o *Options) { o.Middleware = opts }
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// EnableHTTP reports whether the HTTP server should run.
func (o *Options) EnableHTTP() bool {
	return o.Mode == ModeHTTPOnly || o.Mode == ModeBoth
}

// EnableGRPC reports whether the gRPC server should run.
func (o *Options) EnableGRPC() bool {
	return o.Mode == ModeGRPCOnly || o.Mode == ModeBoth
}

// Validate validates the server options.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Mode {
	case ModeHTTPOnly, ModeGRPCOnly, ModeBoth:
	default:
		errs = append(errs, fmt.Errorf("server.mode must be one of http, grpc, both"))
	}
	if o.EnableHTTP() && o.HTTP != nil {
		errs = append(errs, o.HTTP.Validate()...)
	}
	if o.EnableGRPC() && o.GRPC != nil {
		if err := o.GRPC.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown-timeout must be positive"))
	}
	return errs
}
