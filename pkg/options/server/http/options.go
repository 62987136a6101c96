// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the HTTP listener.
type Options struct {
	Addr string `json:"addr" mapstructure:"addr"`
	// ReadTimeout bounds reading the whole request, body included.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout bounds keep-alive waits between requests.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
}

// Option mutates Options.
type Option func(*Options)

// WithAddr sets the listen address.
func WithAddr(addr string) Option { return func(o *Options) { o.Addr = addr } }

// WithReadTimeout sets the read timeout.
func WithReadTimeout(d time.Duration) Option { return func(o *Options) { o.ReadTimeout = d } }

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(d time.Duration) Option { return func(o *Options) { o.WriteTimeout = d } }

// WithIdleTimeout sets the idle timeout.
func WithIdleTimeout(d time.Duration) Option { return func(o *Options) { o.IdleTimeout = d } }

// NewOptions returns HTTP options with production defaults.
func NewOptions() *Options {
	return &Options{
		Addr:         ":8100",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ApplyOptions applies functional options in order.
func (o *Options) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// AddFlags registers the http.* flags on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...)
	fs.StringVar(&o.Addr, prefix+"http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.ReadTimeout, prefix+"http.read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, prefix+"http.write-timeout", o.WriteTimeout, "Timeout before timing out writes of the response.")
	fs.DurationVar(&o.IdleTimeout, prefix+"http.idle-timeout", o.IdleTimeout, "Maximum amount of time to wait for the next request.")
}

// Validate checks the listener configuration.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must be positive"))
	}
	return errs
}

// Complete fills derived values. Nothing to derive for HTTP.
func (o *Options) Complete() error {
	return nil
}
