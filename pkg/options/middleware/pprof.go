package middleware

import (
	"errors"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewarePprof, func() MiddlewareConfig {
		return NewPprofOptions()
	})
}

var _ MiddlewareConfig = (*PprofOptions)(nil)

// PprofOptions 控制 pprof 调试端点。Block 和 Mutex 两项采样默认关闭，
// 打开有运行时开销。
type PprofOptions struct {
	Prefix               string `json:"prefix" mapstructure:"prefix"`
	EnableCmdline        bool   `json:"enable-cmdline" mapstructure:"enable-cmdline"`
	EnableProfile        bool   `json:"enable-profile" mapstructure:"enable-profile"`
	EnableSymbol         bool   `json:"enable-symbol" mapstructure:"enable-symbol"`
	EnableTrace          bool   `json:"enable-trace" mapstructure:"enable-trace"`
	BlockProfileRate     int    `json:"block-profile-rate" mapstructure:"block-profile-rate"`
	MutexProfileFraction int    `json:"mutex-profile-fraction" mapstructure:"mutex-profile-fraction"`
}

// NewPprofOptions 返回默认 pprof 配置
func NewPprofOptions() *PprofOptions {
	return &PprofOptions{
		Prefix:        "/debug/pprof",
		EnableCmdline: true,
		EnableProfile: true,
		EnableSymbol:  true,
		EnableTrace:   true,
	}
}

// AddFlags 注册 middleware.pprof.* 命令行参数
func (o *PprofOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.pprof."
	fs.StringVar(&o.Prefix, prefix+"prefix", o.Prefix, "Pprof URL prefix.")
	fs.BoolVar(&o.EnableCmdline, prefix+"enable-cmdline", o.EnableCmdline, "Enable cmdline pprof.")
	fs.BoolVar(&o.EnableProfile, prefix+"enable-profile", o.EnableProfile, "Enable profile pprof.")
	fs.BoolVar(&o.EnableSymbol, prefix+"enable-symbol", o.EnableSymbol, "Enable symbol pprof.")
	fs.BoolVar(&o.EnableTrace, prefix+"enable-trace", o.EnableTrace, "Enable trace pprof.")
	fs.IntVar(&o.BlockProfileRate, prefix+"block-profile-rate", o.BlockProfileRate, "Block profile rate.")
	fs.IntVar(&o.MutexProfileFraction, prefix+"mutex-profile-fraction", o.MutexProfileFraction, "Mutex profile fraction.")
}

// Validate 校验 pprof 配置
func (o *PprofOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Prefix == "" {
		return []error{errors.New("pprof prefix is required")}
	}
	return nil
}

// Complete 无派生配置
func (o *PprofOptions) Complete() error {
	return nil
}
