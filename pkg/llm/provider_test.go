package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider 同时实现 Embedding 与 Chat，向量固定为三维。
type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (s *stubProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "stub response", nil
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "stub generated text", nil
}

func registerStub(t *testing.T, name string) {
	t.Helper()
	RegisterProvider(name, func(config map[string]any) (Provider, error) {
		actual := name
		if n, ok := config["name"].(string); ok {
			actual = n
		}
		return &stubProvider{name: actual}, nil
	})
}

func TestNewProviderUsesConfig(t *testing.T) {
	registerStub(t, "full-stub")

	provider, err := NewProvider("full-stub", map[string]any{"name": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", provider.Name())
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("no-such-provider", nil)
	assert.Error(t, err)
}

func TestNewEmbeddingProviderPrefersDedicatedFactory(t *testing.T) {
	registerStub(t, "embed-fallback")
	RegisterEmbeddingProvider("embed-only", func(map[string]any) (EmbeddingProvider, error) {
		return &stubProvider{name: "embed-only"}, nil
	})

	provider, err := NewEmbeddingProvider("embed-only", nil)
	require.NoError(t, err)
	assert.Equal(t, "embed-only", provider.Name())

	// 没有专用工厂时回退到完整供应商。
	fallback, err := NewEmbeddingProvider("embed-fallback", nil)
	require.NoError(t, err)
	assert.Equal(t, "embed-fallback", fallback.Name())
}

func TestNewChatProviderPrefersDedicatedFactory(t *testing.T) {
	registerStub(t, "chat-fallback")
	RegisterChatProvider("chat-only", func(map[string]any) (ChatProvider, error) {
		return &stubProvider{name: "chat-only"}, nil
	})

	provider, err := NewChatProvider("chat-only", nil)
	require.NoError(t, err)
	assert.Equal(t, "chat-only", provider.Name())

	fallback, err := NewChatProvider("chat-fallback", nil)
	require.NoError(t, err)
	assert.Equal(t, "chat-fallback", fallback.Name())
}

func TestListProvidersIncludesAllKinds(t *testing.T) {
	registerStub(t, "listed-full")
	RegisterEmbeddingProvider("listed-embed", func(map[string]any) (EmbeddingProvider, error) {
		return &stubProvider{name: "listed-embed"}, nil
	})

	names := ListProviders()
	assert.Contains(t, names, "listed-full")
	assert.Contains(t, names, "listed-embed")
}

func TestStubProviderEmbedShape(t *testing.T) {
	provider := &stubProvider{name: "shape"}

	embeddings, err := provider.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	for _, emb := range embeddings {
		assert.Len(t, emb, 3)
	}

	single, err := provider.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, single, 3)
}
