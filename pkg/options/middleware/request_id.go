package middleware

import (
	"errors"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRequestID, func() MiddlewareConfig {
		return NewRequestIDOptions()
	})
}

var _ MiddlewareConfig = (*RequestIDOptions)(nil)

// RequestIDOptions 请求 ID 中间件配置。结构体必须保持可 JSON 序列化，
// 运行时依赖（如自定义 Generator）通过函数参数注入。
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header"`
	// GeneratorType ID 生成器类型：
	//   "random" / "hex"  加密随机十六进制，32 字符（默认）
	//   "ulid"            时间可排序，26 字符，生成更快
	GeneratorType string `json:"generator_type" mapstructure:"generator_type"`
}

// NewRequestIDOptions 返回默认请求 ID 配置
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{
		Header:        "X-Request-ID",
		GeneratorType: "random",
	}
}

// AddFlags 注册 middleware.request-id.* 命令行参数
func (o *RequestIDOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.request-id."
	fs.StringVar(&o.Header, prefix+"header", o.Header, "Request ID header name.")
	fs.StringVar(&o.GeneratorType, prefix+"generator", o.GeneratorType, "ID generator type: random/hex (default, 32 chars) or ulid (recommended, 26 chars, sortable, 3x faster).")
}

// Validate 校验请求 ID 配置
func (o *RequestIDOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Header == "" {
		errs = append(errs, errors.New("request ID header name is required"))
	}
	switch o.GeneratorType {
	case "", "random", "hex", "ulid":
	default:
		errs = append(errs, errors.New("invalid generator type: must be 'random', 'hex', or 'ulid'"))
	}
	return errs
}

// Complete 无派生配置
func (o *RequestIDOptions) Complete() error {
	return nil
}
