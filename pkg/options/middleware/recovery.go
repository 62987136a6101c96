package middleware

import (
	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRecovery, func() MiddlewareConfig {
		return NewRecoveryOptions()
	})
}

// 确保 RecoveryOptions 实现 MiddlewareConfig 接口。
var _ MiddlewareConfig = (*RecoveryOptions)(nil)

// RecoveryOptions defines recovery middleware options.
// 此结构体必须保持可 JSON 序列化，运行时依赖（如 panic 处理器）通过函数参数注入。
type RecoveryOptions struct {
	// EnableStackTrace includes the stack trace in error responses.
	// 生产环境下强制关闭，堆栈只进日志。
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// NewRecoveryOptions creates default recovery options.
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{
		EnableStackTrace: false,
	}
}

// AddFlags adds flags for recovery options to the specified FlagSet.
func (o *RecoveryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.EnableStackTrace, options.Join(prefixes...)+"middleware.recovery.enable-stack-trace", o.EnableStackTrace, "Enable stack trace in error responses.")
}

// Validate validates the recovery options.
func (o *RecoveryOptions) Validate() []error {
	return nil
}

// Complete completes the recovery options with defaults.
func (o *RecoveryOptions) Complete() error {
	return nil
}
