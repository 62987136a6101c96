// Package middleware provides version middleware options.
package middleware

import (
	"errors"
	"strings"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareVersion, func() MiddlewareConfig {
		return NewVersionOptions()
	})
}

var _ MiddlewareConfig = (*VersionOptions)(nil)

// VersionOptions 版本端点配置
type VersionOptions struct {
	// Enabled 是否暴露版本端点
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Path 版本端点路径
	Path string `json:"path" mapstructure:"path"`
	// HideDetails 隐藏 commit 哈希、构建时间等敏感构建信息
	HideDetails bool `json:"hide-details" mapstructure:"hide-details"`
}

// NewVersionOptions 返回默认版本端点配置
func NewVersionOptions() *VersionOptions {
	return &VersionOptions{
		Enabled: true,
		Path:    "/version",
	}
}

// AddFlags 注册 middleware.version.* 命令行参数
func (o *VersionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.version."
	fs.BoolVar(&o.Enabled, prefix+"enabled", o.Enabled, "Enable version endpoint.")
	fs.StringVar(&o.Path, prefix+"path", o.Path, "Version endpoint path.")
	fs.BoolVar(&o.HideDetails, prefix+"hide-details", o.HideDetails, "Hide sensitive build details in version response.")
}

// Validate 校验版本端点配置
func (o *VersionOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Enabled && o.Path != "" && !strings.HasPrefix(o.Path, "/") {
		return []error{errors.New("middleware.version.path must start with '/'")}
	}
	return nil
}

// Complete 补全缺省路径
func (o *VersionOptions) Complete() error {
	if o.Path == "" {
		o.Path = "/version"
	}
	return nil
}
