// Package grpc holds the gRPC transport options. The retrieval service keeps
// this transport available for reflection and future service descriptors even
// though its primary surface is HTTP.
package grpc

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const defaultMsgSize = 16 * 1024 * 1024

// Options configures the gRPC listener.
type Options struct {
	// Addr is the listen address, host optional.
	Addr string `json:"addr" mapstructure:"addr"`
	// Timeout bounds individual requests.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// MaxRecvMsgSize caps inbound message size in bytes.
	MaxRecvMsgSize int `json:"max-recv-msg-size" mapstructure:"max-recv-msg-size"`
	// MaxSendMsgSize caps outbound message size in bytes.
	MaxSendMsgSize int `json:"max-send-msg-size" mapstructure:"max-send-msg-size"`
	// EnableReflection turns on server reflection for grpcurl and friends.
	EnableReflection bool `json:"enable-reflection" mapstructure:"enable-reflection"`
}

// Option mutates Options.
type Option func(*Options)

// NewOptions returns Options with production defaults.
func NewOptions() *Options {
	return &Options{
		Addr:             ":9090",
		Timeout:          30 * time.Second,
		MaxRecvMsgSize:   defaultMsgSize,
		MaxSendMsgSize:   defaultMsgSize,
		EnableReflection: true,
	}
}

// ApplyOptions applies functional options in order.
func (o *Options) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// AddFlags binds the options under the "grpc." prefix.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "grpc.addr", o.Addr, "gRPC server listen address")
	fs.DurationVar(&o.Timeout, "grpc.timeout", o.Timeout, "gRPC server request timeout")
	fs.IntVar(&o.MaxRecvMsgSize, "grpc.max-recv-msg-size", o.MaxRecvMsgSize, "gRPC max receive message size in bytes")
	fs.IntVar(&o.MaxSendMsgSize, "grpc.max-send-msg-size", o.MaxSendMsgSize, "gRPC max send message size in bytes")
	fs.BoolVar(&o.EnableReflection, "grpc.enable-reflection", o.EnableReflection, "Enable gRPC server reflection")
}

// Validate rejects unusable values.
func (o *Options) Validate() error {
	if o.Addr == "" {
		return fmt.Errorf("grpc.addr cannot be empty")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("grpc.timeout must be positive")
	}
	if o.MaxRecvMsgSize <= 0 {
		return fmt.Errorf("grpc.max-recv-msg-size must be positive")
	}
	if o.MaxSendMsgSize <= 0 {
		return fmt.Errorf("grpc.max-send-msg-size must be positive")
	}
	return nil
}

// Complete fills derived values. Nothing to derive today.
func (o *Options) Complete() error {
	return nil
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Options) { o.Addr = addr }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxRecvMsgSize caps inbound message size.
func WithMaxRecvMsgSize(size int) Option {
	return func(o *Options) { o.MaxRecvMsgSize = size }
}

// WithMaxSendMsgSize caps outbound message size.
func WithMaxSendMsgSize(size int) Option {
	return func(o *Options) { o.MaxSendMsgSize = size }
}

// WithReflection toggles server reflection.
func WithReflection(enable bool) Option {
	return func(o *Options) { o.EnableReflection = enable }
}
