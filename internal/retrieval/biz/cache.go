package biz

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/provenance/internal/model"
)

// QueryCacheConfig 查询缓存配置。
type QueryCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultQueryCacheConfig 返回默认的查询缓存配置。
func DefaultQueryCacheConfig() *QueryCacheConfig {
	return &QueryCacheConfig{
		Enabled:   true,
		TTL:       10 * time.Minute,
		KeyPrefix: "retrieval:",
	}
}

// cachedResult 是一次查询的可复用部分。QueryID 不缓存，命中时仍然生成
// 新的查询 ID 并写入新的审计记录。
type cachedResult struct {
	Results   []model.RankedResult   `json:"results"`
	Consulted []model.ConsultedChunk `json:"consulted"`
	Degraded  bool                   `json:"degraded"`
}

// QueryCache 基于 Redis 的查询结果缓存。缓存键包含启用集快照版本，
// 任何一次切换都会让后续查询落到新的键上。
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache 创建查询缓存。
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = DefaultQueryCacheConfig()
	}
	return &QueryCache{redis: redis, config: config}
}

// key 基于查询向量、top_k、权重与快照生成缓存键。
func (c *QueryCache) key(vector []float32, topK int, w model.FusionWeights, set model.EnabledSet) string {
	h := sha256.New()

	var buf [8]byte
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		h.Write(buf[:4])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(topK))
	h.Write(buf[:])
	_, _ = fmt.Fprintf(h, "%.6f|%.6f|%.6f|%d", w.Similarity, w.Reliability, w.Confidence, set.Version)
	for _, id := range set.SortedIDs() {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}

	return c.config.KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get 查询缓存。未命中或缓存不可用时返回 nil, nil。
func (c *QueryCache) Get(ctx context.Context, vector []float32, topK int, w model.FusionWeights, set model.EnabledSet) (*cachedResult, error) {
	if !c.enabled() {
		return nil, nil
	}

	data, err := c.redis.Get(ctx, c.key(vector, topK, w, set)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		logger.Warnw("query cache get failed", "error", err)
		return nil, nil
	}

	var result cachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("query cache entry corrupted", "error", err)
		return nil, nil
	}
	return &result, nil
}

// Set 写入缓存。失败只记日志，不影响查询。
func (c *QueryCache) Set(ctx context.Context, vector []float32, topK int, w model.FusionWeights, set model.EnabledSet, result *cachedResult) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("query cache marshal failed", "error", err)
		return
	}
	if err := c.redis.Set(ctx, c.key(vector, topK, w, set), data, c.config.TTL).Err(); err != nil {
		logger.Warnw("query cache set failed", "error", err)
	}
}

// Invalidate 清空本服务前缀下的全部缓存项。由协调器在切换传播时调用；
// 快照版本已经让新查询避开旧键，这里只是回收空间并缩短陈旧窗口。
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 256).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 256 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.redis.Del(ctx, keys...).Err()
	}
	return nil
}

func (c *QueryCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}
