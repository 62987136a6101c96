package middleware

import (
	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareLogger, func() MiddlewareConfig {
		return NewLoggerOptions()
	})
}

var _ MiddlewareConfig = (*LoggerOptions)(nil)

// LoggerOptions 请求日志中间件配置
type LoggerOptions struct {
	// SkipPaths 不记录日志的路径，默认跳过探活与指标端点
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
	// UseStructuredLogger 使用结构化日志而不是 gin 默认格式
	UseStructuredLogger bool `json:"use-structured-logger" mapstructure:"use-structured-logger"`
	// Output 自定义输出函数，仅供代码注入，不参与序列化
	Output func(format string, args ...interface{}) `json:"-" mapstructure:"-"`
}

// NewLoggerOptions 返回默认日志中间件配置
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths:           []string{"/health", "/ready", "/live", "/metrics"},
		UseStructuredLogger: true,
	}
}

// AddFlags 注册 middleware.logger.* 命令行参数
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.logger."
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Paths to skip logging.")
	fs.BoolVar(&o.UseStructuredLogger, prefix+"use-structured-logger", o.UseStructuredLogger, "Use structured logger.")
}

// Validate 日志中间件没有非法配置组合
func (o *LoggerOptions) Validate() []error {
	return nil
}

// Complete 无派生配置
func (o *LoggerOptions) Complete() error {
	return nil
}
