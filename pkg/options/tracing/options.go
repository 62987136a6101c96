// Package tracingopts provides options for distributed tracing configuration.
package tracingopts

import (
	"fmt"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// 支持的导出器
const (
	ExporterOTLP = "otlp"
	ExporterNoop = "noop"
)

// Options 分布式链路追踪配置
type Options struct {
	// Enabled 是否启用追踪
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Exporter 导出器类型，otlp 或 noop
	Exporter string `json:"exporter" mapstructure:"exporter"`
	// Endpoint OTLP gRPC 端点 host:port
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	// SampleRate 采样率，[0, 1]，1 为全量采样
	SampleRate float64 `json:"sample-rate" mapstructure:"sample-rate"`
}

// NewOptions 返回默认追踪配置，默认关闭
func NewOptions() *Options {
	return &Options{
		Enabled:    false,
		Exporter:   ExporterOTLP,
		Endpoint:   "localhost:4317",
		SampleRate: 1.0,
	}
}

// AddFlags 注册 tracing.* 命令行参数
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "tracing."
	fs.BoolVar(&o.Enabled, prefix+"enabled", o.Enabled, "Enable distributed tracing.")
	fs.StringVar(&o.Exporter, prefix+"exporter", o.Exporter, "Trace exporter type (otlp or noop).")
	fs.StringVar(&o.Endpoint, prefix+"endpoint", o.Endpoint, "OTLP gRPC collector endpoint (host:port).")
	fs.Float64Var(&o.SampleRate, prefix+"sample-rate", o.SampleRate, "Trace sampling rate within [0, 1].")
}

// Validate 校验追踪配置
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Exporter != ExporterOTLP && o.Exporter != ExporterNoop {
		errs = append(errs, fmt.Errorf("unsupported trace exporter: %s", o.Exporter))
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("trace sample rate must be within [0, 1], got %v", o.SampleRate))
	}
	if o.Enabled && o.Exporter == ExporterOTLP && o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("trace endpoint is required when the otlp exporter is enabled"))
	}
	return errs
}
