package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/provenance/pkg/id"
	ctxlog "github.com/kart-io/provenance/pkg/infra/logger"
	"github.com/kart-io/provenance/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// HeaderXRequestID is re-exported from common for backward compatibility.
const HeaderXRequestID = common.HeaderXRequestID

// RequestID returns a request ID middleware with default options.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions 返回一个使用纯配置选项和运行时依赖注入的 RequestID 中间件。
//
// 参数：
//   - opts: 纯配置选项（可 JSON 序列化）
//   - generator: 可选的自定义 ID 生成函数，为 nil 时按 opts.GeneratorType 选择
//
// 入站请求已携带 ID 时沿用该 ID，否则生成新 ID。
// ID 同时写入响应头和 request context，供日志等下游中间件读取。
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator func() string) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = common.HeaderXRequestID
	}

	if generator == nil {
		switch opts.GeneratorType {
		case "ulid":
			gen := id.NewULIDGenerator()
			generator = gen.Generate
		default:
			generator = common.GenerateRequestID
		}
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = generator()
		}

		c.Header(header, requestID)
		c.Set("request_id", requestID)
		ctx := common.WithRequestID(c.Request.Context(), requestID)
		ctx = ctxlog.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
