// Package resilience 为出站模型调用提供重试与熔断。
// 检索服务在调用 Embedding 供应商时用它隔离慢节点和故障节点。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// ErrCircuitBreakerOpen 在熔断器打开期间拒绝调用时返回。
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// RetryConfig 控制指数退避重试。
type RetryConfig struct {
	// MaxAttempts 含首次调用的总次数。
	MaxAttempts int
	// InitialDelay 首次重试前的等待。
	InitialDelay time.Duration
	// MaxDelay 退避上限。
	MaxDelay time.Duration
	// Multiplier 每轮退避的倍率。
	Multiplier float64
	// RetryableErrors 判断错误是否值得重试。
	RetryableErrors func(error) bool
}

// DefaultRetryConfig 默认重试所有错误，三次封顶。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Multiplier:      2.0,
		RetryableErrors: func(error) bool { return true },
	}
}

// CircuitBreakerConfig 控制熔断阈值与恢复节奏。
type CircuitBreakerConfig struct {
	// MaxFailures 连续失败达到该值后打开。
	MaxFailures int
	// Timeout 打开后经过该时长转入半开。
	Timeout time.Duration
	// HalfOpenMaxCalls 半开期放行的探测调用数。
	HalfOpenMaxCalls int
}

// DefaultCircuitBreakerConfig 返回默认阈值。
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreakerState 熔断器状态。
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker 三态熔断器：closed 正常放行，open 直接拒绝，
// half-open 放行有限探测，全部成功则回到 closed。
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu                sync.RWMutex
	state             CircuitBreakerState
	failures          int
	lastFailureTime   time.Time
	halfOpenCalls     int
	halfOpenSuccesses int
}

// NewCircuitBreaker 创建熔断器，config 为 nil 时用默认值。
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute 在熔断器保护下执行 fn。
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// allow 判定本次调用是否放行，必要时完成 open→half-open 的状态迁移。
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailureTime) <= cb.config.Timeout {
			return ErrCircuitBreakerOpen
		}
		logger.Infow("circuit breaker transitioning to half-open")
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		cb.halfOpenSuccesses = 0
		return nil
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			return ErrCircuitBreakerOpen
		}
		cb.halfOpenCalls++
		return nil
	}
	return ErrCircuitBreakerOpen
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.recordSuccess()
		return
	}
	cb.recordFailure()
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.halfOpenCalls {
			logger.Infow("circuit breaker transitioning to closed")
			cb.state = StateClosed
			cb.failures = 0
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			logger.Warnw("circuit breaker opening",
				"failures", cb.failures,
				"max_failures", cb.config.MaxFailures,
			)
			cb.state = StateOpen
		}
	case StateHalfOpen:
		// 半开期任何失败都立即重新打开。
		logger.Warnw("circuit breaker re-opening after half-open failure")
		cb.state = StateOpen
	}
}

// State 返回当前状态。
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats 返回状态快照，用于诊断接口。
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return map[string]interface{}{
		"state":               cb.state.String(),
		"failures":            cb.failures,
		"last_failure_time":   cb.lastFailureTime,
		"half_open_calls":     cb.halfOpenCalls,
		"half_open_successes": cb.halfOpenSuccesses,
	}
}

// Reset 强制回到 closed 并清零计数。
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCalls = 0
	cb.halfOpenSuccesses = 0
}

// RetryWithBackoff 按指数退避重试 fn，context 取消时立即停止。
func RetryWithBackoff(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	delay := config.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !config.RetryableErrors(lastErr) {
			logger.Debugw("error is not retryable", "error", lastErr.Error())
			return lastErr
		}

		if attempt >= config.MaxAttempts {
			logger.Warnw("max retry attempts reached",
				"attempts", attempt,
				"error", lastErr.Error(),
			)
			return fmt.Errorf("max retry attempts (%d) reached: %w", config.MaxAttempts, lastErr)
		}

		logger.Debugw("retrying after delay",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr.Error(),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return lastErr
}

// RetryWithCircuitBreaker 先过熔断器再套重试。调用方的 RetryableErrors
// 通常要排除 ErrCircuitBreakerOpen，避免对着打开的熔断器空转。
func RetryWithCircuitBreaker(
	ctx context.Context,
	retryConfig *RetryConfig,
	cb *CircuitBreaker,
	fn func() error,
) error {
	return RetryWithBackoff(ctx, retryConfig, func() error {
		return cb.Execute(fn)
	})
}
