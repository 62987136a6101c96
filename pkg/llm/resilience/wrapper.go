// Package resilience 提供 LLM 调用的韧性包装器。
package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/kart-io/logger"
	"github.com/kart-io/provenance/pkg/llm"
)

// guard 重试配置与熔断器的组合，两个包装器共用
type guard struct {
	retry *RetryConfig
	cb    *CircuitBreaker
}

func newGuard(retryConfig *RetryConfig, cbConfig *CircuitBreakerConfig) guard {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = IsRetryableError
	}
	return guard{retry: retryConfig, cb: NewCircuitBreaker(cbConfig)}
}

func (g guard) run(ctx context.Context, fn func() error) error {
	return RetryWithCircuitBreaker(ctx, g.retry, g.cb, fn)
}

// ResilientEmbeddingProvider 给 EmbeddingProvider 加上重试与熔断
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	guard
}

// NewResilientEmbeddingProvider 包装 Embedding Provider，nil 配置取默认值
func NewResilientEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	return &ResilientEmbeddingProvider{
		provider: provider,
		guard:    newGuard(retryConfig, cbConfig),
	}
}

// Embed 带重试和熔断的批量向量嵌入
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := r.run(ctx, func() error {
		var innerErr error
		result, innerErr = r.provider.Embed(ctx, texts)
		return innerErr
	})
	return result, err
}

// EmbedSingle 带重试和熔断的单文本向量嵌入
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := r.run(ctx, func() error {
		var innerErr error
		result, innerErr = r.provider.EmbedSingle(ctx, text)
		return innerErr
	})
	return result, err
}

// Name 供应商名称
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker 暴露熔断器供监控读取
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ResilientChatProvider 给 ChatProvider 加上重试与熔断
type ResilientChatProvider struct {
	provider llm.ChatProvider
	guard
}

// NewResilientChatProvider 包装 Chat Provider，nil 配置取默认值
func NewResilientChatProvider(
	provider llm.ChatProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientChatProvider {
	return &ResilientChatProvider{
		provider: provider,
		guard:    newGuard(retryConfig, cbConfig),
	}
}

// Chat 带重试和熔断的多轮对话
func (r *ResilientChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var result string
	err := r.run(ctx, func() error {
		var innerErr error
		result, innerErr = r.provider.Chat(ctx, messages)
		return innerErr
	})
	return result, err
}

// Generate 带重试和熔断的文本生成
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var result string
	err := r.run(ctx, func() error {
		var innerErr error
		result, innerErr = r.provider.Generate(ctx, prompt, systemPrompt)
		return innerErr
	})
	return result, err
}

// Name 供应商名称
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker 暴露熔断器供监控读取
func (r *ResilientChatProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsRetryableError 默认的可重试判断：网络层瞬时错误与服务端
// 过载类 HTTP 状态可重试，调用方主动取消与熔断拒绝不重试。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitBreakerOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("network timeout, retryable", "error", err.Error())
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		logger.Debugw("DNS error, retryable", "error", err.Error())
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		logger.Debugw("network operation error, retryable", "error", err.Error())
		return true
	}

	// 供应商错误只带文本，按状态码片段匹配中英文两种报错格式
	errMsg := err.Error()
	switch {
	case containsAny(errMsg, "status code 5", "状态码 5", "服务器错误"):
		logger.Debugw("server error, retryable", "error", errMsg)
		return true
	case containsAny(errMsg, "status code 429", "状态码 429", "rate limit"):
		logger.Debugw("rate limit error, retryable", "error", errMsg)
		return true
	case containsAny(errMsg, "status code 408", "状态码 408"):
		logger.Debugw("request timeout, retryable", "error", errMsg)
		return true
	case containsAny(errMsg, "status code 503", "状态码 503", "service unavailable"):
		logger.Debugw("service unavailable, retryable", "error", errMsg)
		return true
	}

	if errors.Is(err, http.ErrServerClosed) || containsAny(errMsg, "EOF", "connection reset") {
		logger.Debugw("connection error, retryable", "error", errMsg)
		return true
	}

	logger.Debugw("error not retryable", "error", errMsg)
	return false
}

// Stats 韧性状态快照
type Stats struct {
	CircuitBreakerState    string
	CircuitBreakerFailures int
	CircuitBreakerStats    map[string]interface{}
}

func statsFromBreaker(cb *CircuitBreaker) *Stats {
	cbStats := cb.Stats()
	return &Stats{
		CircuitBreakerState:    cbStats["state"].(string),
		CircuitBreakerFailures: cbStats["failures"].(int),
		CircuitBreakerStats:    cbStats,
	}
}

// GetEmbeddingProviderStats 读取 Embedding 包装器的韧性统计，
// 非包装器返回 nil
func GetEmbeddingProviderStats(provider llm.EmbeddingProvider) *Stats {
	if rp, ok := provider.(*ResilientEmbeddingProvider); ok {
		return statsFromBreaker(rp.cb)
	}
	return nil
}

// GetChatProviderStats 读取 Chat 包装器的韧性统计，非包装器返回 nil
func GetChatProviderStats(provider llm.ChatProvider) *Stats {
	if rp, ok := provider.(*ResilientChatProvider); ok {
		return statsFromBreaker(rp.cb)
	}
	return nil
}
