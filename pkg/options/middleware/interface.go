// Package middleware provides middleware configuration options.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

// Config 定义中间件配置的统一接口。
// 所有中间件配置必须实现此接口以支持注册器模式。
type Config interface {
	// Validate 验证配置的有效性。
	Validate() []error

	// Complete 完成配置的默认值填充。
	Complete() error

	// AddFlags 添加命令行标志。
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// MiddlewareConfig 是 Config 的别名,保持向后兼容。
//
//nolint:revive // MiddlewareConfig 保持向后兼容性
type MiddlewareConfig = Config

// Factory 根据配置创建 Gin 中间件处理函数。
// 各中间件实现包在 init() 中通过 RegisterFactory 注册。
type Factory interface {
	// Name 返回中间件名称（与配置注册名一致）。
	Name() string

	// NeedsRuntime 报告该中间件是否需要运行时依赖注入，
	// 需要运行时依赖的中间件不能仅凭配置创建。
	NeedsRuntime() bool

	// Create 根据配置创建中间件处理函数。
	Create(cfg MiddlewareConfig) (gin.HandlerFunc, error)
}

// RouteRegistrar 为需要注册独立路由的中间件（health、metrics、pprof、version）
// 提供路由挂载入口。
type RouteRegistrar interface {
	RegisterRoutes(engine *gin.Engine, cfg MiddlewareConfig) error
}
