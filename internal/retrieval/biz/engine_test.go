package biz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// fakeIndex is an in-memory ChunkIndex used to drive the engine.
type fakeIndex struct {
	pushdown   bool
	candidates []*store.Candidate
	failures   int
	onSearch   func()
}

func (f *fakeIndex) Capabilities() store.Capabilities {
	return store.Capabilities{FilterPushdown: f.pushdown}
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, allowedSources []string) ([]*store.Candidate, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("index unavailable")
	}
	if f.onSearch != nil {
		f.onSearch()
	}

	allowed := map[string]bool{}
	for _, id := range allowedSources {
		allowed[id] = true
	}

	out := make([]*store.Candidate, 0, len(f.candidates))
	for _, c := range f.candidates {
		if f.pushdown && allowedSources != nil && !allowed[c.SourceID] {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) EnsureCollection(context.Context, *store.CollectionConfig) error { return nil }
func (f *fakeIndex) Insert(context.Context, []*store.IndexedChunk) ([]int64, error)  { return nil, nil }
func (f *fakeIndex) Delete(context.Context, []string) error                          { return nil }
func (f *fakeIndex) Stats(context.Context) (int64, error)                            { return int64(len(f.candidates)), nil }
func (f *fakeIndex) Close(context.Context) error                                     { return nil }

// failingRawStore degrades every relational read.
type failingRawStore struct {
	store.RawStore
}

func (f *failingRawStore) GetChunks(context.Context, []string) (map[string]*model.Chunk, error) {
	return nil, errors.New("mysql down")
}

func (f *failingRawStore) GetConfidence(context.Context, []string) (map[string]float64, error) {
	return nil, errors.New("mysql down")
}

type engineFixture struct {
	engine   *biz.Engine
	registry *biz.SourceRegistry
	coord    *biz.Coordinator
	audit    *biz.AuditTrail
	raw      store.RawStore
	index    *fakeIndex
}

func newFixture(t *testing.T, index *fakeIndex, raw store.RawStore) *engineFixture {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	if raw == nil {
		gs, err := store.NewGormStore(db)
		require.NoError(t, err)
		raw = gs
	}
	auditStore, err := store.NewGormAuditStore(db)
	require.NoError(t, err)

	registry, err := biz.NewSourceRegistry(ctx, raw)
	require.NoError(t, err)
	coord := biz.NewCoordinator(registry, index, nil)
	audit := biz.NewAuditTrail(auditStore, biz.AuditBlock, nil)
	engine := biz.NewEngine(coord, registry, index, raw, audit)

	return &engineFixture{engine: engine, registry: registry, coord: coord, audit: audit, raw: raw, index: index}
}

func (fx *engineFixture) addSource(t *testing.T, id string, reliability float64) {
	t.Helper()
	_, err := fx.registry.Register(context.Background(), &model.Source{
		ID: id, Name: id, Status: model.SourceEnabled, Reliability: reliability,
	})
	require.NoError(t, err)
}

func (fx *engineFixture) addChunk(t *testing.T, chunkID, sourceID string, ingestedAt time.Time) {
	t.Helper()
	err := fx.raw.CreateDocument(context.Background(), &model.Document{
		ID: "doc-" + chunkID, SourceID: sourceID, IngestedAt: ingestedAt,
	}, []*model.Chunk{
		{ID: chunkID, DocumentID: "doc-" + chunkID, SourceID: sourceID, Content: "content " + chunkID, IngestedAt: ingestedAt},
	})
	require.NoError(t, err)
}

func queryVec() []float32 { return []float32{0.1, 0.2, 0.3} }

func TestRetrieveRanksAndAudits(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.5},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.9)
	fx.addSource(t, "b", 0.4)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{
		QueryVector: queryVec(), TopK: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "c1", resp.Results[0].ChunkID)
	assert.False(t, resp.Degraded)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)

	// 审计完整性：记录存在，被咨询集合覆盖最终排名，快照一致
	record, err := fx.audit.Fetch(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, record.EnabledSources)
	assert.False(t, record.Degraded)
	require.Len(t, record.Consulted, 2)
	consulted := map[string]bool{}
	for _, c := range record.Consulted {
		consulted[c.ChunkID] = true
	}
	for _, id := range record.FinalRanking {
		assert.True(t, consulted[id])
	}
}

func TestInstantExclusionWithPushdown(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.8},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)
	fx.addSource(t, "b", 0.5)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)

	_, err := fx.registry.SetStatus(context.Background(), "b", model.SourceDisabled)
	require.NoError(t, err)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ChunkID)

	record, err := fx.audit.Fetch(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, record.EnabledSources)
	for _, c := range record.Consulted {
		assert.NotEqual(t, "b", c.SourceID)
	}
}

func TestInstantExclusionWithPostFilter(t *testing.T) {
	now := time.Now()
	// 无下推能力：引擎超额拉取并自行过滤
	index := &fakeIndex{pushdown: false, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.8},
		{ChunkID: "c3", SourceID: "a", Similarity: 0.7},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)
	fx.addSource(t, "b", 0.5)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)
	fx.addChunk(t, "c3", "a", now)

	_, err := fx.registry.SetStatus(context.Background(), "b", model.SourceDisabled)
	require.NoError(t, err)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec(), TopK: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, "a", r.SourceID)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	now := time.Now()
	fxHolder := &struct{ fx *engineFixture }{}
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.8},
	}}
	// 查询进行中（快照已取）切换源 b
	index.onSearch = func() {
		_, err := fxHolder.fx.registry.SetStatus(context.Background(), "b", model.SourceDisabled)
		require.NoError(t, err)
	}

	fx := newFixture(t, index, nil)
	fxHolder.fx = fx
	fx.addSource(t, "a", 0.5)
	fx.addSource(t, "b", 0.5)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)

	// 进行中的查询仍然看到切换前的快照
	require.Len(t, resp.Results, 2)
	record, err := fx.audit.Fetch(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, record.EnabledSources)

	// 后续查询立即排除 b
	index.onSearch = nil
	resp2, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	require.Len(t, resp2.Results, 1)
	assert.Equal(t, "c1", resp2.Results[0].ChunkID)
}

func TestRestoreEquivalence(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.8},
		{ChunkID: "c3", SourceID: "a", Similarity: 0.7},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.7)
	fx.addSource(t, "b", 0.6)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)
	fx.addChunk(t, "c3", "a", now)

	ctx := context.Background()
	req := &biz.RetrieveRequest{QueryVector: queryVec(), TopK: 3}

	before, err := fx.engine.Retrieve(ctx, req)
	require.NoError(t, err)

	_, err = fx.registry.SetStatus(ctx, "b", model.SourceDisabled)
	require.NoError(t, err)
	_, err = fx.registry.SetStatus(ctx, "b", model.SourceEnabled)
	require.NoError(t, err)

	after, err := fx.engine.Retrieve(ctx, req)
	require.NoError(t, err)

	// 禁用再启用后，相同查询得到相同排名
	require.Equal(t, len(before.Results), len(after.Results))
	for i := range before.Results {
		assert.Equal(t, before.Results[i].ChunkID, after.Results[i].ChunkID)
		assert.InDelta(t, before.Results[i].Score, after.Results[i].Score, 1e-9)
	}
}

func TestReliabilityAffectsRanking(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c-low", SourceID: "low", Similarity: 0.8},
		{ChunkID: "c-high", SourceID: "high", Similarity: 0.8},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "high", 0.95)
	fx.addSource(t, "low", 0.1)
	fx.addChunk(t, "c-low", "low", now)
	fx.addChunk(t, "c-high", "high", now)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	// 相同相似度下，高可靠度的源排在前面
	assert.Equal(t, "c-high", resp.Results[0].ChunkID)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestDegradedOnRelationalOutage(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
	}}

	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.9)
	fx.addChunk(t, "c1", "a", now)

	// 候选获取后关系读取全部失败
	degradedEngine := biz.NewEngine(fx.coord, fx.registry, index, &failingRawStore{RawStore: fx.raw}, fx.audit)

	resp, err := degradedEngine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.Len(t, resp.Results, 1)
	// 置信分退化为中性值，可靠度仍来自注册表
	assert.InDelta(t, 0.5, resp.Results[0].Confidence, 1e-9)
	assert.InDelta(t, 0.9, resp.Results[0].Reliability, 1e-9)

	record, err := fx.audit.Fetch(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.True(t, record.Degraded)
}

func TestRetrievalUnavailable(t *testing.T) {
	index := &fakeIndex{pushdown: true, failures: 2}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)

	_, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	assert.ErrorIs(t, err, apperrors.ErrRetrievalUnavailable)
}

func TestIndexRetrySucceeds(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, failures: 1, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)
	fx.addChunk(t, "c1", "a", now)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestEmptyEnabledSetStillAudited(t *testing.T) {
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)
	_, err := fx.registry.SetStatus(context.Background(), "a", model.SourceDisabled)
	require.NoError(t, err)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{QueryVector: queryVec()})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	record, err := fx.audit.Fetch(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Empty(t, record.EnabledSources)
	assert.Empty(t, record.Consulted)
}

func TestRetrieveRequestValidation(t *testing.T) {
	fx := newFixture(t, &fakeIndex{pushdown: true}, nil)
	fx.addSource(t, "a", 0.5)
	ctx := context.Background()

	_, err := fx.engine.Retrieve(ctx, &biz.RetrieveRequest{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)

	_, err = fx.engine.Retrieve(ctx, &biz.RetrieveRequest{
		QueryVector: queryVec(),
		Weights:     &model.FusionWeights{Similarity: -1},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidWeights)

	// 没有配置向量化供应商时，纯文本查询报错
	_, err = fx.engine.Retrieve(ctx, &biz.RetrieveRequest{QueryText: "hello"})
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}

func TestSourceFilterNarrowsSnapshot(t *testing.T) {
	now := time.Now()
	index := &fakeIndex{pushdown: true, candidates: []*store.Candidate{
		{ChunkID: "c1", SourceID: "a", Similarity: 0.9},
		{ChunkID: "c2", SourceID: "b", Similarity: 0.8},
	}}
	fx := newFixture(t, index, nil)
	fx.addSource(t, "a", 0.5)
	fx.addSource(t, "b", 0.5)
	fx.addChunk(t, "c1", "a", now)
	fx.addChunk(t, "c2", "b", now)

	resp, err := fx.engine.Retrieve(context.Background(), &biz.RetrieveRequest{
		QueryVector:  queryVec(),
		SourceFilter: []string{"b", "ghost"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c2", resp.Results[0].ChunkID)
}
