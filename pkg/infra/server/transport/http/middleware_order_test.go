package http

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
	options "github.com/kart-io/provenance/pkg/options/server/http"
)

// serveTestRoute 挂载 /test 路由并发起一次请求，返回状态码。
func serveTestRoute(server *Server) int {
	server.Engine().GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	server.Engine().ServeHTTP(w, req)
	return w.Code
}

// 默认中间件顺序。
func TestMiddlewareOrderDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mwOpts := mwopts.NewOptions()
	server := NewServer(options.NewOptions(), mwOpts)

	expected := []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareLogger,
		mwopts.MiddlewareMetrics,
		mwopts.MiddlewareCORS,
		mwopts.MiddlewareTimeout,
	}
	assert.Equal(t, expected, mwOpts.GetMiddlewareOrder())

	assert.Equal(t, http.StatusOK, serveTestRoute(server))
}

// 自定义中间件顺序：CORS 提前到 logger 之前。
func TestMiddlewareOrderCustom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	customOrder := []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareCORS,
		mwopts.MiddlewareLogger,
		mwopts.MiddlewareTimeout,
	}

	mwOpts := mwopts.NewOptions()
	mwOpts.Middleware = customOrder

	server := NewServer(options.NewOptions(), mwOpts)

	assert.Equal(t, customOrder, mwOpts.GetMiddlewareOrder())
	assert.Equal(t, http.StatusOK, serveTestRoute(server))
}

// 中间件列表校验：未知名称和重复名称都要被拒绝。
func TestMiddlewareOrderValidation(t *testing.T) {
	tests := []struct {
		name        string
		middleware  []string
		expectError bool
	}{
		{
			name:       "valid middleware list",
			middleware: []string{mwopts.MiddlewareRecovery, mwopts.MiddlewareLogger},
		},
		{
			name:        "unknown middleware",
			middleware:  []string{mwopts.MiddlewareRecovery, "unknown-middleware"},
			expectError: true,
		},
		{
			name:        "duplicate middleware",
			middleware:  []string{mwopts.MiddlewareRecovery, mwopts.MiddlewareRecovery},
			expectError: true,
		},
		{
			name:       "empty middleware list",
			middleware: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mwOpts := mwopts.NewOptions()
			mwOpts.Middleware = tt.middleware

			errs := mwOpts.ValidateMiddleware()
			if tt.expectError {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

// 配置的中间件先于 Engine().Use 追加的中间件执行。
func TestMiddlewareOrderExecution(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var mu sync.Mutex
	var executionOrder []string

	mwOpts := mwopts.NewOptions()
	mwOpts.Middleware = []string{
		mwopts.MiddlewareRecovery,
		mwopts.MiddlewareRequestID,
		mwopts.MiddlewareLogger,
	}
	mwOpts.SetConfig(mwopts.MiddlewareRecovery, mwopts.NewRecoveryOptions())
	mwOpts.SetConfig(mwopts.MiddlewareRequestID, mwopts.NewRequestIDOptions())
	mwOpts.SetConfig(mwopts.MiddlewareLogger, mwopts.NewLoggerOptions())

	server := NewServer(options.NewOptions(), mwOpts)
	server.Engine().Use(func(c *gin.Context) {
		mu.Lock()
		executionOrder = append(executionOrder, "test-middleware")
		mu.Unlock()
		c.Next()
	})

	require.Equal(t, http.StatusOK, serveTestRoute(server))

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, executionOrder, "appended middleware must run")
}
