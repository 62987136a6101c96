package middleware

import (
	"errors"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareCORS, func() MiddlewareConfig {
		return NewCORSOptions()
	})
}

var _ MiddlewareConfig = (*CORSOptions)(nil)

// CORSOptions 跨域中间件配置
type CORSOptions struct {
	AllowOrigins     []string `json:"allow-origins" mapstructure:"allow-origins"`
	AllowMethods     []string `json:"allow-methods" mapstructure:"allow-methods"`
	AllowHeaders     []string `json:"allow-headers" mapstructure:"allow-headers"`
	ExposeHeaders    []string `json:"expose-headers" mapstructure:"expose-headers"`
	AllowCredentials bool     `json:"allow-credentials" mapstructure:"allow-credentials"`
	// MaxAge 预检结果缓存秒数
	MaxAge int `json:"max-age" mapstructure:"max-age"`
}

// NewCORSOptions 返回默认跨域配置，默认放行所有来源但不带凭证
func NewCORSOptions() *CORSOptions {
	return &CORSOptions{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{},
		MaxAge:        86400,
	}
}

// AddFlags 注册 middleware.cors.* 命令行参数
func (o *CORSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.cors."
	fs.StringSliceVar(&o.AllowOrigins, prefix+"allow-origins", o.AllowOrigins, "CORS allowed origins.")
	fs.StringSliceVar(&o.AllowMethods, prefix+"allow-methods", o.AllowMethods, "CORS allowed methods.")
	fs.StringSliceVar(&o.AllowHeaders, prefix+"allow-headers", o.AllowHeaders, "CORS allowed headers.")
	fs.StringSliceVar(&o.ExposeHeaders, prefix+"expose-headers", o.ExposeHeaders, "CORS exposed headers.")
	fs.BoolVar(&o.AllowCredentials, prefix+"allow-credentials", o.AllowCredentials, "CORS allow credentials.")
	fs.IntVar(&o.MaxAge, prefix+"max-age", o.MaxAge, "CORS preflight max age.")
}

// Validate 校验跨域配置，来源列表不允许为空
func (o *CORSOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if len(o.AllowOrigins) == 0 {
		return []error{errors.New("CORS: AllowOrigins must be explicitly configured, empty list not allowed")}
	}
	return nil
}

// Complete 无派生配置
func (o *CORSOptions) Complete() error {
	return nil
}
