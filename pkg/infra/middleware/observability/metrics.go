package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// MetricsCollector 收集 HTTP 请求指标并持有独立的 Prometheus registry，
// 避免测试场景下的重复注册冲突。
type MetricsCollector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
}

// NewMetricsCollector creates a metrics collector with its own registry.
func NewMetricsCollector(namespace, subsystem string) *MetricsCollector {
	registry := prometheus.NewRegistry()

	m := &MetricsCollector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_active",
			Help:      "Current number of in-flight requests.",
		}),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.activeRequests)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

var (
	globalMetricsCollector *MetricsCollector
	metricsMu              sync.Mutex
)

// GetMetricsCollector returns the global metrics collector, creating it on
// first use with the given namespace and subsystem.
func GetMetricsCollector(namespace, subsystem string) *MetricsCollector {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if globalMetricsCollector == nil {
		globalMetricsCollector = NewMetricsCollector(namespace, subsystem)
	}
	return globalMetricsCollector
}

// ResetMetricsCollector drops the global collector (useful for testing).
func ResetMetricsCollector() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetricsCollector = nil
}

// ResetMetrics resets all metrics data (useful for testing).
func ResetMetrics() {
	ResetMetricsCollector()
}

// RecordRequest records one completed request.
func (m *MetricsCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// IncrementActive increments the in-flight request gauge.
func (m *MetricsCollector) IncrementActive() {
	m.activeRequests.Inc()
}

// DecrementActive decrements the in-flight request gauge.
func (m *MetricsCollector) DecrementActive() {
	m.activeRequests.Dec()
}

// GetRequestCount 返回指定标签组合的请求计数，测试用。
func (m *MetricsCollector) GetRequestCount(method, path string, status int) uint64 {
	c, err := m.requestsTotal.GetMetricWithLabelValues(method, path, strconv.Itoa(status))
	if err != nil {
		return 0
	}
	return uint64(testutil.ToFloat64(c))
}

// Handler returns an http.Handler exposing this collector's registry in
// Prometheus text format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MetricsWithOptions 返回一个使用纯配置选项的 Metrics 中间件。
// 采集 requests_total、request_duration_seconds 和 requests_active。
func MetricsWithOptions(opts mwopts.MetricsOptions) gin.HandlerFunc {
	collector := GetMetricsCollector(opts.Namespace, opts.Subsystem)

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Skip the metrics endpoint itself
		if path == opts.Path {
			c.Next()
			return
		}

		collector.IncrementActive()
		start := time.Now()

		c.Next()

		collector.DecrementActive()
		collector.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RegisterMetricsRoutesWithOptions 在 engine 上注册 Prometheus 导出端点。
func RegisterMetricsRoutesWithOptions(engine *gin.Engine, opts mwopts.MetricsOptions) {
	collector := GetMetricsCollector(opts.Namespace, opts.Subsystem)
	engine.GET(opts.Path, gin.WrapH(collector.Handler()))
}
