// Package llm 提供模型供应商抽象。检索服务用 EmbeddingProvider 为文档分块和
// 查询文本生成向量，Chat 能力保留给上层应用。
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EmbeddingProvider 生成文本向量。
type EmbeddingProvider interface {
	// Embed 批量生成向量，顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 生成单个文本的向量。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 提供对话与单轮生成。
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)
	Name() string
}

// Provider 同时具备 Embedding 和 Chat 能力。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// 工厂函数类型，config 为供应商私有配置。
type (
	ProviderFactory          func(config map[string]any) (Provider, error)
	EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)
	ChatProviderFactory      func(config map[string]any) (ChatProvider, error)
)

type providerRegistry struct {
	mu                 sync.RWMutex
	providers          map[string]ProviderFactory
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

var registry = &providerRegistry{
	providers:          make(map[string]ProviderFactory),
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

// RegisterProvider 注册完整供应商工厂，通常在供应商包的 init() 中调用。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// RegisterEmbeddingProvider 注册仅 Embedding 的供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider 注册仅 Chat 的供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewProvider 按名称创建完整供应商。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

// NewEmbeddingProvider 按名称创建 Embedding 供应商。
// 专用 Embedding 工厂优先，完整供应商工厂兜底。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.embeddingProviders[name]; ok {
		return factory(config)
	}
	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

// NewChatProvider 按名称创建 Chat 供应商。
// 专用 Chat 工厂优先，完整供应商工厂兜底。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.chatProviders[name]; ok {
		return factory(config)
	}
	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown chat provider: %s", name)
}

// ListProviders 返回所有已注册的供应商名称，去重。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	collect := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.providers {
		collect(name)
	}
	for name := range registry.embeddingProviders {
		collect(name)
	}
	for name := range registry.chatProviders {
		collect(name)
	}
	return names
}
