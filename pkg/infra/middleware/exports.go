// Package middleware provides HTTP middleware components.
//
// This file re-exports types from subpackages for backward compatibility.
// New code should import the appropriate subpackage directly:
//
//	import "github.com/kart-io/provenance/pkg/infra/middleware/observability"
//	import "github.com/kart-io/provenance/pkg/infra/middleware/resilience"
//	import "github.com/kart-io/provenance/pkg/infra/middleware/security"
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/provenance/pkg/infra/middleware/observability"
	"github.com/kart-io/provenance/pkg/infra/middleware/resilience"
	"github.com/kart-io/provenance/pkg/infra/middleware/security"
	options "github.com/kart-io/provenance/pkg/options/middleware"
)

// ============================================================================
// Options exports (Configuration types)
// ============================================================================

// Options type aliases for backward compatibility.
type (
	// Options is the main middleware options container.
	Options = options.Options

	// RecoveryOptions defines recovery middleware options.
	RecoveryOptions = options.RecoveryOptions

	// RequestIDOptions defines request ID middleware options.
	RequestIDOptions = options.RequestIDOptions

	// LoggerOptions defines logger middleware options.
	LoggerOptions = options.LoggerOptions

	// CORSOptions defines CORS middleware options.
	CORSOptions = options.CORSOptions

	// TimeoutOptions defines timeout middleware options.
	TimeoutOptions = options.TimeoutOptions

	// HealthOptions defines health check options.
	HealthOptions = options.HealthOptions

	// MetricsOptions defines metrics options.
	MetricsOptions = options.MetricsOptions

	// PprofOptions defines pprof options.
	PprofOptions = options.PprofOptions

	// VersionOptions defines version endpoint options.
	VersionOptions = options.VersionOptions
)

// Middleware name constants.
const (
	MiddlewareRecovery  = options.MiddlewareRecovery
	MiddlewareRequestID = options.MiddlewareRequestID
	MiddlewareLogger    = options.MiddlewareLogger
	MiddlewareCORS      = options.MiddlewareCORS
	MiddlewareTimeout   = options.MiddlewareTimeout
	MiddlewareHealth    = options.MiddlewareHealth
	MiddlewareMetrics   = options.MiddlewareMetrics
	MiddlewarePprof     = options.MiddlewarePprof
	MiddlewareVersion   = options.MiddlewareVersion
)

// NewOptions creates default middleware options.
var NewOptions = options.NewOptions

// ============================================================================
// Observability exports (Logger, Metrics)
// ============================================================================

// MetricsCollector is an alias for observability.MetricsCollector.
type MetricsCollector = observability.MetricsCollector

// Logger functions re-exports.
var (
	// Logger returns a middleware that logs HTTP requests.
	Logger = observability.Logger

	// LoggerWithOptions returns a logger middleware using pure config + runtime dependencies.
	// 这是推荐的 API，适用于配置中心场景。
	LoggerWithOptions = observability.LoggerWithOptions
)

// MetricsMiddlewareWithOptions creates a middleware that collects request metrics.
func MetricsMiddlewareWithOptions(opts MetricsOptions) gin.HandlerFunc {
	return observability.MetricsWithOptions(opts)
}

// RegisterMetricsRoutesWithOptions registers the Prometheus export endpoint.
func RegisterMetricsRoutesWithOptions(engine *gin.Engine, opts MetricsOptions) {
	observability.RegisterMetricsRoutesWithOptions(engine, opts)
}

// Metrics functions re-exports.
var (
	GetMetricsCollector   = observability.GetMetricsCollector
	ResetMetricsCollector = observability.ResetMetricsCollector
	ResetMetrics          = observability.ResetMetrics
	NewMetricsCollector   = observability.NewMetricsCollector
)

// ============================================================================
// Resilience exports (Recovery, Timeout)
// ============================================================================

// Recovery functions re-exports.
var (
	// Recovery returns a middleware that recovers from panics.
	Recovery = resilience.Recovery

	// RecoveryWithOptions returns a recovery middleware with options and an
	// optional panic handler.
	RecoveryWithOptions = resilience.RecoveryWithOptions
)

// Timeout re-exports resilience.Timeout.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return resilience.Timeout(timeout)
}

// TimeoutWithOptions re-exports resilience.TimeoutWithOptions.
// 这是推荐的构造函数，直接使用 pkg/options/middleware.TimeoutOptions。
var TimeoutWithOptions = resilience.TimeoutWithOptions

// ============================================================================
// Security exports (CORS)
// ============================================================================

// CORS functions re-exports.
var (
	// CORS returns a middleware that adds CORS headers.
	CORS = security.CORS

	// CORSWithOptions returns a CORS middleware with CORSOptions.
	// 这是推荐的构造函数，直接使用 pkg/options/middleware.CORSOptions。
	CORSWithOptions = security.CORSWithOptions
)
