package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db
}

func newTestStore(t *testing.T) *store.GormStore {
	t.Helper()
	s, err := store.NewGormStore(newTestDB(t))
	require.NoError(t, err)
	return s
}

func TestSourceCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := &model.Source{
		ID:          "wiki",
		Name:        "Wiki",
		Status:      model.SourceEnabled,
		Reliability: 0.9,
	}
	require.NoError(t, s.CreateSource(ctx, src))

	got, err := s.GetSource(ctx, "wiki")
	require.NoError(t, err)
	assert.Equal(t, "Wiki", got.Name)
	assert.Equal(t, model.SourceEnabled, got.Status)
	assert.InDelta(t, 0.9, got.Reliability, 1e-9)

	// 重复注册
	err = s.CreateSource(ctx, src)
	assert.ErrorIs(t, err, apperrors.ErrSourceExists)

	// 不存在
	_, err = s.GetSource(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)

	list, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateSourceStatusCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSource(ctx, &model.Source{
		ID: "a", Name: "A", Status: model.SourceEnabled, Reliability: 0.5,
	}))

	// 正常切换
	require.NoError(t, s.UpdateSourceStatusCAS(ctx, "a", model.SourceEnabled, model.SourceDisabled))
	got, err := s.GetSource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.SourceDisabled, got.Status)

	// 旧状态不匹配
	err = s.UpdateSourceStatusCAS(ctx, "a", model.SourceEnabled, model.SourceDisabled)
	assert.ErrorIs(t, err, apperrors.ErrToggleCASMismatch)

	// 源不存在
	err = s.UpdateSourceStatusCAS(ctx, "zzz", model.SourceEnabled, model.SourceDisabled)
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
}

func TestCreateDocumentAndChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &model.Document{
		ID:         "doc-1",
		SourceID:   "wiki",
		Title:      "Intro",
		IngestedAt: time.Now(),
	}
	chunks := []*model.Chunk{
		{ID: "c1", DocumentID: "doc-1", SourceID: "wiki", Content: "hello", Seq: 0, VectorID: 100},
		{ID: "c2", DocumentID: "doc-1", SourceID: "wiki", Content: "world", Seq: 1, VectorID: 101},
	}
	require.NoError(t, s.CreateDocument(ctx, doc, chunks))

	got, err := s.GetChunks(ctx, []string{"c1", "c2", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "hello", got["c1"].Content)
	assert.Equal(t, int64(101), got["c2"].VectorID)
}

func TestQueryDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		ID: "old", SourceID: "a", IngestedAt: now.Add(-2 * time.Hour),
	}, nil))
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		ID: "new", SourceID: "a", IngestedAt: now,
	}, nil))
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		ID: "other", SourceID: "b", IngestedAt: now,
	}, nil))

	docs, err := s.QueryDocuments(ctx, []string{"a"}, model.DocumentPredicate{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// ingested_at desc
	assert.Equal(t, "new", docs[0].ID)

	docs, err = s.QueryDocuments(ctx, []string{"a"}, model.DocumentPredicate{
		IngestedAfter: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ID)

	docs, err = s.QueryDocuments(ctx, nil, model.DocumentPredicate{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestConfidenceScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertConfidence(ctx, &model.ConfidenceScore{
		ChunkID: "c1", Dimension: "factuality", Value: 0.8,
	}))
	require.NoError(t, s.UpsertConfidence(ctx, &model.ConfidenceScore{
		ChunkID: "c1", Dimension: "freshness", Value: 0.4,
	}))
	require.NoError(t, s.UpsertConfidence(ctx, &model.ConfidenceScore{
		ChunkID: "c2", Dimension: "factuality", Value: 1.0,
	}))

	got, err := s.GetConfidence(ctx, []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.6, got["c1"], 1e-9) // 多维度取均值
	assert.InDelta(t, 1.0, got["c2"], 1e-9)

	// 覆盖写
	require.NoError(t, s.UpsertConfidence(ctx, &model.ConfidenceScore{
		ChunkID: "c2", Dimension: "factuality", Value: 0.2,
	}))
	got, err = s.GetConfidence(ctx, []string{"c2"})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got["c2"], 1e-9)
}
