package biz_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
	"github.com/kart-io/provenance/internal/retrieval/store"
)

type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls.Add(1)
	return nil
}

func enabledSet(ids ...string) model.EnabledSet {
	set := model.EnabledSet{IDs: make(map[string]struct{}), Version: 1, TakenAt: time.Now()}
	for _, id := range ids {
		set.IDs[id] = struct{}{}
	}
	return set
}

func TestPlanQueryPushdown(t *testing.T) {
	registry, _ := newRegistry(t, nil)
	coord := biz.NewCoordinator(registry, &fakeIndex{pushdown: true}, nil)

	plan := coord.PlanQuery(enabledSet("a", "b"), nil, 10)
	assert.True(t, plan.Pushdown)
	assert.Equal(t, []string{"a", "b"}, plan.AllowedSources)
	assert.Equal(t, 10, plan.FetchK)
}

func TestPlanQueryOverFetch(t *testing.T) {
	registry, _ := newRegistry(t, nil)
	coord := biz.NewCoordinator(registry, &fakeIndex{pushdown: false}, nil,
		biz.WithOverFetchFactor(4))

	// 无下推能力：超额拉取，事后过滤
	plan := coord.PlanQuery(enabledSet("a"), nil, 10)
	assert.False(t, plan.Pushdown)
	assert.Equal(t, 40, plan.FetchK)
}

func TestPlanQueryNarrowsFilterToSnapshot(t *testing.T) {
	registry, _ := newRegistry(t, nil)
	coord := biz.NewCoordinator(registry, &fakeIndex{pushdown: true}, nil)

	plan := coord.PlanQuery(enabledSet("a", "b"), []string{"b", "disabled", "ghost"}, 5)
	assert.Equal(t, []string{"b"}, plan.AllowedSources)
}

func TestTogglePropagatesToInvalidator(t *testing.T) {
	registry, _ := newRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.Register(ctx, &model.Source{ID: "a", Name: "A"})
	require.NoError(t, err)

	inv := &countingInvalidator{}
	coord := biz.NewCoordinator(registry, &fakeIndex{pushdown: true}, nil,
		biz.WithInvalidator(inv),
		biz.WithPropagationDeadline(time.Second))
	coord.Start()
	defer coord.Stop()

	_, err = registry.SetStatus(ctx, "a", model.SourceDisabled)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return inv.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// 空操作切换不触发失效
	_, err = registry.SetStatus(ctx, "a", model.SourceDisabled)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), inv.calls.Load())
}

func TestToggleNeverTouchesIndex(t *testing.T) {
	registry, _ := newRegistry(t, nil)
	ctx := context.Background()
	_, err := registry.Register(ctx, &model.Source{ID: "a", Name: "A"})
	require.NoError(t, err)

	index := &mutationTrackingIndex{fakeIndex: fakeIndex{pushdown: true}}
	coord := biz.NewCoordinator(registry, index, nil)
	coord.Start()
	defer coord.Stop()

	for i := 0; i < 4; i++ {
		to := model.SourceDisabled
		if i%2 == 1 {
			to = model.SourceEnabled
		}
		_, err = registry.SetStatus(ctx, "a", to)
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(0), index.mutations.Load())
}

type mutationTrackingIndex struct {
	fakeIndex
	mutations atomic.Int64
}

func (m *mutationTrackingIndex) Insert(ctx context.Context, chunks []*store.IndexedChunk) ([]int64, error) {
	m.mutations.Add(1)
	return m.fakeIndex.Insert(ctx, chunks)
}

func (m *mutationTrackingIndex) Delete(ctx context.Context, ids []string) error {
	m.mutations.Add(1)
	return m.fakeIndex.Delete(ctx, ids)
}
