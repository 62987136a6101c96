package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// HealthStatus is the aggregate or per-check state reported by the health
// endpoints.
type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "UP"
	HealthStatusDown HealthStatus = "DOWN"
)

// HealthResponse is the JSON body returned by the health endpoints.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
	Version string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one named checker.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker probes one dependency; nil means healthy.
type HealthChecker func() error

// HealthManager collects named checkers and a readiness flag. Components
// register their checkers at startup; the HTTP endpoints read from here.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	ready    bool
	version  string
}

// NewHealthManager returns a manager that starts out ready with no
// checkers.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		ready:    true,
	}
}

var globalHealthManager = NewHealthManager()

// GetHealthManager returns the process-wide health manager.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// SetVersion records the service version for the health payload.
func (h *HealthManager) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

// RegisterChecker adds or replaces a named checker.
func (h *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// SetReady flips the readiness flag, e.g. during draining.
func (h *HealthManager) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports the readiness flag.
func (h *HealthManager) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Check runs every registered checker. Any failure turns the aggregate
// status DOWN; individual results are always included.
func (h *HealthManager) Check() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := HealthResponse{
		Status:  HealthStatusUp,
		Version: h.version,
	}
	if len(h.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult)
	for name, checker := range h.checkers {
		if err := checker(); err != nil {
			resp.Status = HealthStatusDown
			resp.Checks[name] = CheckResult{
				Status:  HealthStatusDown,
				Message: err.Error(),
			}
			continue
		}
		resp.Checks[name] = CheckResult{Status: HealthStatusUp}
	}
	return resp
}

func writeCheckResponse(c *gin.Context, manager *HealthManager) {
	resp := manager.Check()
	status := http.StatusOK
	if resp.Status == HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// RegisterHealthRoutesWithOptions 注册健康检查路由。
//
// opts 是纯配置（可 JSON 序列化），checker 是可选的运行时依赖：
//
//	opts := mwopts.NewHealthOptions()
//	RegisterHealthRoutesWithOptions(engine, *opts, func() error {
//	    return rawStore.Ping(context.Background())
//	})
//
// 三个端点的语义：
//   - Path: 聚合健康检查，任一 checker 失败返回 503
//   - LivenessPath: 进程存活即返回 200
//   - ReadinessPath: ready 标志为假或检查失败返回 503
func RegisterHealthRoutesWithOptions(engine *gin.Engine, opts mwopts.HealthOptions, checker func() error) {
	manager := GetHealthManager()

	if checker != nil {
		manager.RegisterChecker("custom", checker)
	}

	if opts.Path != "" {
		engine.GET(opts.Path, func(c *gin.Context) {
			writeCheckResponse(c, manager)
		})
	}

	if opts.LivenessPath != "" {
		engine.GET(opts.LivenessPath, func(c *gin.Context) {
			c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusUp})
		})
	}

	if opts.ReadinessPath != "" {
		engine.GET(opts.ReadinessPath, func(c *gin.Context) {
			if !manager.IsReady() {
				c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: HealthStatusDown})
				return
			}
			writeCheckResponse(c, manager)
		})
	}
}
