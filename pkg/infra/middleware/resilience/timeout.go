package resilience

import (
	"context"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	"github.com/kart-io/provenance/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// defaultTimeout 在配置未指定超时时间时生效。
const defaultTimeout = 30 * time.Second

// Timeout returns a middleware that limits request processing time.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithOptions(mwopts.TimeoutOptions{Timeout: timeout})
}

// TimeoutWithOptions 返回一个使用纯配置选项的 Timeout 中间件。
// 这是推荐的构造函数，直接使用 pkg/options/middleware.TimeoutOptions。
//
// 请求 context 会携带截止时间，业务代码应将其向下传递。
// 超时后向客户端返回 408 错误响应，处理协程后续的写入被丢弃。
func TimeoutWithOptions(opts mwopts.TimeoutOptions) gin.HandlerFunc {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	pathMatcher := pathutil.NewPathMatcher(opts.SkipPaths, nil)

	return func(c *gin.Context) {
		if pathMatcher(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		tw := &timeoutWriter{ResponseWriter: c.Writer}
		c.Writer = tw

		done := make(chan struct{})
		panicChan := make(chan interface{}, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					panicChan <- p
				}
			}()
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case p := <-panicChan:
			c.Abort()
			tw.markTimedOut()
			logger.Errorw("panic in timed handler",
				"panic", p,
				"stack_trace", string(debug.Stack()),
				"path", c.Request.URL.Path,
			)
			writeErrno(tw.ResponseWriter, apperrors.ErrPanic)
		case <-ctx.Done():
			c.Abort()
			tw.markTimedOut()
			// 绕过守卫直接写底层 writer，处理协程的后续写入已被丢弃
			writeErrno(tw.ResponseWriter, apperrors.ErrRequestTimeout)
		}
	}
}

// timeoutWriter 在超时后丢弃处理协程的写入，避免与超时响应交错。
type timeoutWriter struct {
	gin.ResponseWriter
	mu       sync.Mutex
	timedOut bool
}

func (w *timeoutWriter) markTimedOut() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timedOut = true
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *timeoutWriter) WriteString(s string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(s), nil
	}
	return w.ResponseWriter.WriteString(s)
}

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func writeErrno(w gin.ResponseWriter, errno *apperrors.Errno) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(errno.HTTPStatus())
	_, _ = w.Write([]byte(`{"code":` + strconv.Itoa(errno.Code) + `,"message":` + strconv.Quote(errno.MessageEN) + `}`))
}
