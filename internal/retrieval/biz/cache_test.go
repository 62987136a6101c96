package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/provenance/internal/model"
)

func testSet(version uint64, ids ...string) model.EnabledSet {
	set := model.EnabledSet{IDs: make(map[string]struct{}), Version: version, TakenAt: time.Now()}
	for _, id := range ids {
		set.IDs[id] = struct{}{}
	}
	return set
}

func TestCacheKeyDeterministic(t *testing.T) {
	c := NewQueryCache(nil, nil)
	vec := []float32{0.1, 0.2, 0.3}
	w := model.DefaultFusionWeights()

	k1 := c.key(vec, 5, w, testSet(3, "a", "b"))
	k2 := c.key(vec, 5, w, testSet(3, "b", "a"))
	assert.Equal(t, k1, k2, "ID 顺序不应影响缓存键")
}

func TestCacheKeyChangesWithSnapshot(t *testing.T) {
	c := NewQueryCache(nil, nil)
	vec := []float32{0.1, 0.2, 0.3}
	w := model.DefaultFusionWeights()
	base := c.key(vec, 5, w, testSet(3, "a", "b"))

	// 切换推进快照版本，禁用再启用回到同一集合但版本不同，键随之变化
	assert.NotEqual(t, base, c.key(vec, 5, w, testSet(4, "a", "b")))
	assert.NotEqual(t, base, c.key(vec, 5, w, testSet(3, "a")))
	assert.NotEqual(t, base, c.key(vec, 10, w, testSet(3, "a", "b")))
	assert.NotEqual(t, base, c.key([]float32{0.1, 0.2, 0.4}, 5, w, testSet(3, "a", "b")))
	assert.NotEqual(t, base, c.key(vec, 5, model.FusionWeights{Similarity: 1}, testSet(3, "a", "b")))
}

func TestCacheDisabledIsNoop(t *testing.T) {
	ctx := context.Background()

	var nilCache *QueryCache
	got, err := nilCache.Get(ctx, []float32{0.1}, 5, model.DefaultFusionWeights(), testSet(1))
	assert.NoError(t, err)
	assert.Nil(t, got)

	noRedis := NewQueryCache(nil, &QueryCacheConfig{Enabled: true})
	got, err = noRedis.Get(ctx, []float32{0.1}, 5, model.DefaultFusionWeights(), testSet(1))
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, noRedis.Invalidate(ctx))
}
