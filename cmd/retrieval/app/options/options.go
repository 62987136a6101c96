// Package options contains flags and options for initializing the retrieval server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	retrievalsvc "github.com/kart-io/provenance/internal/retrieval"
	"github.com/kart-io/provenance/pkg/component/mysql"
	appopts "github.com/kart-io/provenance/pkg/options/app"
	cacheopts "github.com/kart-io/provenance/pkg/options/cache"
	llmopts "github.com/kart-io/provenance/pkg/options/llm"
	logopts "github.com/kart-io/provenance/pkg/options/logger"
	middlewareopts "github.com/kart-io/provenance/pkg/options/middleware"
	milvusopts "github.com/kart-io/provenance/pkg/options/milvus"
	retrievalopts "github.com/kart-io/provenance/pkg/options/retrieval"
	grpcopts "github.com/kart-io/provenance/pkg/options/server/grpc"
	httpopts "github.com/kart-io/provenance/pkg/options/server/http"
	tracingopts "github.com/kart-io/provenance/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// GRPCOptions contains gRPC server configuration.
	GRPCOptions *grpcopts.Options `json:"grpc" mapstructure:"grpc"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MySQLOptions contains relational store configuration.
	MySQLOptions *mysql.Options `json:"mysql" mapstructure:"mysql"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// RetrievalOptions contains retrieval-specific configuration.
	RetrievalOptions *retrievalopts.Options `json:"retrieval" mapstructure:"retrieval"`

	// CacheOptions contains query cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TracingOptions contains distributed tracing configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// RecoveryOptions contains recovery middleware configuration.
	RecoveryOptions *middlewareopts.RecoveryOptions `json:"recovery" mapstructure:"recovery"`

	// RequestIDOptions contains request ID middleware configuration.
	RequestIDOptions *middlewareopts.RequestIDOptions `json:"request-id" mapstructure:"request-id"`

	// LoggerOptions contains logger middleware configuration.
	LoggerOptions *middlewareopts.LoggerOptions `json:"logger" mapstructure:"logger"`

	// CORSOptions contains CORS middleware configuration.
	CORSOptions *middlewareopts.CORSOptions `json:"cors" mapstructure:"cors"`

	// TimeoutOptions contains timeout middleware configuration.
	TimeoutOptions *middlewareopts.TimeoutOptions `json:"timeout" mapstructure:"timeout"`

	// HealthOptions contains health check configuration.
	HealthOptions *middlewareopts.HealthOptions `json:"health" mapstructure:"health"`

	// MetricsOptions contains metrics configuration.
	MetricsOptions *middlewareopts.MetricsOptions `json:"metrics" mapstructure:"metrics"`

	// PprofOptions contains pprof configuration.
	PprofOptions *middlewareopts.PprofOptions `json:"pprof" mapstructure:"pprof"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8084"

	grpcOpts := grpcopts.NewOptions()
	grpcOpts.Addr = ":8104"

	return &ServerOptions{
		HTTPOptions:      httpOpts,
		GRPCOptions:      grpcOpts,
		LogOptions:       logopts.NewOptions(),
		MySQLOptions:     mysql.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		RetrievalOptions: retrievalopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		RecoveryOptions:  middlewareopts.NewRecoveryOptions(),
		RequestIDOptions: middlewareopts.NewRequestIDOptions(),
		LoggerOptions:    middlewareopts.NewLoggerOptions(),
		HealthOptions:    middlewareopts.NewHealthOptions(),
		MetricsOptions:   middlewareopts.NewMetricsOptions(),
		ShutdownTimeout:  30 * time.Second,
		// CORSOptions, TimeoutOptions, PprofOptions 默认禁用（nil）
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss appopts.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.GRPCOptions.AddFlags(fss.FlagSet("grpc"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MySQLOptions.AddFlags(fss.FlagSet("mysql"), "mysql.")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.RetrievalOptions.AddFlags(fss.FlagSet("retrieval"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.MySQLOptions.Complete(); err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.RetrievalOptions.Complete(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.GRPCOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.MySQLOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.RetrievalOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a retrievalsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*retrievalsvc.Config, error) {
	return &retrievalsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		GRPCOptions:      o.GRPCOptions,
		LogOptions:       o.LogOptions,
		MySQLOptions:     o.MySQLOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		RetrievalOptions: o.RetrievalOptions,
		CacheOptions:     o.CacheOptions,
		TracingOptions:   o.TracingOptions,
		RecoveryOptions:  o.RecoveryOptions,
		RequestIDOptions: o.RequestIDOptions,
		LoggerOptions:    o.LoggerOptions,
		CORSOptions:      o.CORSOptions,
		TimeoutOptions:   o.TimeoutOptions,
		HealthOptions:    o.HealthOptions,
		MetricsOptions:   o.MetricsOptions,
		PprofOptions:     o.PprofOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
