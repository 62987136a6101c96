// Package grpc aliases the gRPC server option types from
// pkg/options/server/grpc so older import paths keep compiling.
package grpc

import (
	options "github.com/kart-io/provenance/pkg/options/server/grpc"
)

// Options holds gRPC server configuration.
type Options = options.Options

// Option mutates an Options value.
type Option = options.Option

// NewOptions returns Options populated with defaults.
var NewOptions = options.NewOptions

var (
	WithAddr           = options.WithAddr
	WithTimeout        = options.WithTimeout
	WithMaxRecvMsgSize = options.WithMaxRecvMsgSize
	WithMaxSendMsgSize = options.WithMaxSendMsgSize
	WithReflection     = options.WithReflection
)
