package resilience

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// PanicHandler 在 panic 被捕获后调用，用于告警或自定义日志。
// err 是 panic 值，stack 是完整的堆栈。
type PanicHandler func(ctx *gin.Context, err interface{}, stack []byte)

// Recovery returns panic recovery middleware with default options.
func Recovery() gin.HandlerFunc {
	return RecoveryWithOptions(*mwopts.NewRecoveryOptions(), nil)
}

// RecoveryWithOptions 返回 panic 恢复中间件。
//
// opts 是纯配置（可 JSON 序列化）；onPanic 是可选的运行时回调，
// 为 nil 时只记录日志并返回错误响应：
//
//	middleware.RecoveryWithOptions(opts, nil)
//
//	middleware.RecoveryWithOptions(opts, func(ctx *gin.Context, err interface{}, stack []byte) {
//	    alerting.SendPanicAlert(err, stack)
//	})
//
// 生产环境下即使 EnableStackTrace 为真，堆栈也不会返回给客户端，
// 但完整堆栈仍会写入日志。
func RecoveryWithOptions(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	stackToClient := opts.EnableStackTrace
	if stackToClient && inProduction() {
		logger.Warn("Stack trace is enabled but running in production environment. " +
			"Stack trace will NOT be returned to clients for security reasons. " +
			"Full stack trace will still be logged.")
		stackToClient = false
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logger.Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			if onPanic != nil {
				onPanic(c, r, stack)
			}

			errno := panicErrno(r, stack, stackToClient)
			c.AbortWithStatusJSON(errno.HTTPStatus(), gin.H{
				"code":    errno.Code,
				"message": errno.MessageEN,
			})
		}()
		c.Next()
	}
}

// inProduction reads APP_ENV, falling back to GO_ENV.
func inProduction() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch env {
	case "production", "prod", "PRODUCTION", "PROD":
		return true
	}
	return false
}

func panicErrno(panicValue interface{}, stack []byte, includeStack bool) *apperrors.Errno {
	if includeStack {
		return apperrors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v\n%s", panicValue, string(stack)))
	}
	return apperrors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v", panicValue))
}
