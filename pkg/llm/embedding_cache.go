package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// EmbeddingCacheConfig 控制向量缓存行为。
type EmbeddingCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认配置。
// 同一文本的向量不随时间变化，TTL 可以放得较长。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider 用 Redis 缓存包装底层 EmbeddingProvider。
// 缓存任何一步失败都只降级为直接调用底层供应商，不影响结果。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建缓存包装器，config 为 nil 时用默认配置。
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis *goredis.Client,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{provider: provider, redis: redis, config: config}
}

func (c *CachedEmbeddingProvider) active() bool {
	return c.config.Enabled && c.redis != nil
}

// cacheKey 对文本取 SHA-256 作为键，避免超长或含控制字符的键。
func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// lookup 返回缓存的向量。未命中、Redis 错误或缓存数据损坏都返回 nil，
// 损坏的条目顺手删掉。
func (c *CachedEmbeddingProvider) lookup(ctx context.Context, key string) []float32 {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("redis get error, falling back to provider", "error", err.Error())
		}
		return nil
	}
	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil
	}
	return embedding
}

func (c *CachedEmbeddingProvider) store(ctx context.Context, key string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}
}

// EmbedSingle 生成单个文本的向量，优先走缓存。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if !c.active() {
		return c.provider.EmbedSingle(ctx, text)
	}

	key := c.cacheKey(text)
	if embedding := c.lookup(ctx, key); embedding != nil {
		logger.Debugw("embedding cache hit", "text_length", len(text), "key", key)
		return embedding, nil
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, embedding)
	return embedding, nil
}

// Embed 批量生成向量。命中的条目直接填充，未命中的合并为一次底层调用。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.active() {
		return c.provider.Embed(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	var missedIndices []int
	var missedTexts []string

	for i, text := range texts {
		if embedding := c.lookup(ctx, c.cacheKey(text)); embedding != nil {
			embeddings[i] = embedding
			continue
		}
		missedIndices = append(missedIndices, i)
		missedTexts = append(missedTexts, text)
	}

	if len(missedTexts) == 0 {
		logger.Infow("all embeddings from cache", "total", len(texts))
		return embeddings, nil
	}

	logger.Infow("embedding cache miss (batch)", "total", len(texts), "uncached", len(missedTexts))
	computed, err := c.provider.Embed(ctx, missedTexts)
	if err != nil {
		return nil, err
	}
	for i, idx := range missedIndices {
		embeddings[idx] = computed[i]
		c.store(ctx, c.cacheKey(missedTexts[i]), computed[i])
	}
	return embeddings, nil
}

// Name 返回带 -cached 后缀的底层供应商名。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache 扫描并删除所有本前缀下的缓存键。
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) error {
	if !c.active() {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}
	logger.Infow("cleared embedding cache", "deleted_count", deleted)
	return nil
}

// GetCacheStats 返回缓存键数量与配置摘要。
func (c *CachedEmbeddingProvider) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.active() {
		return map[string]interface{}{"enabled": false}, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  count,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
		"provider":   c.provider.Name(),
	}, nil
}
