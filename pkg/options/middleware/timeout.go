package middleware

import (
	"errors"
	"time"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareTimeout, func() MiddlewareConfig {
		return NewTimeoutOptions()
	})
}

// 确保 TimeoutOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*TimeoutOptions)(nil)

// TimeoutOptions defines timeout middleware options.
type TimeoutOptions struct {
	// Timeout is the per-request processing deadline.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// SkipPaths lists paths exempt from the timeout, e.g. streaming endpoints.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewTimeoutOptions creates default timeout options.
func NewTimeoutOptions() *TimeoutOptions {
	return &TimeoutOptions{
		Timeout:   30 * time.Second,
		SkipPaths: []string{},
	}
}

// AddFlags adds flags for timeout options to the specified FlagSet.
func (o *TimeoutOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"middleware.timeout.timeout", o.Timeout, "Request processing timeout.")
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.timeout.skip-paths", o.SkipPaths, "Paths exempt from the request timeout.")
}

// Validate validates the timeout options.
func (o *TimeoutOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	return errs
}

// Complete completes the timeout options with defaults.
func (o *TimeoutOptions) Complete() error {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	return nil
}
