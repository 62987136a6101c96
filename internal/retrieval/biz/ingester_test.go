package biz_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// fixedEmbedder returns one constant vector per input text.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (fixedEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (fixedEmbedder) Name() string { return "fixed" }

// recordingIndex captures inserts and deletes for rollback assertions.
type recordingIndex struct {
	fakeIndex
	inserted atomic.Int64
	deleted  []string
}

func (r *recordingIndex) Insert(_ context.Context, chunks []*store.IndexedChunk) ([]int64, error) {
	r.inserted.Add(int64(len(chunks)))
	ids := make([]int64, len(chunks))
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (r *recordingIndex) Delete(_ context.Context, ids []string) error {
	r.deleted = append(r.deleted, ids...)
	return nil
}

// brokenDocStore fails every document write.
type brokenDocStore struct {
	store.RawStore
}

func (b *brokenDocStore) CreateDocument(context.Context, *model.Document, []*model.Chunk) error {
	return errors.New("mysql down")
}

func TestIngestSplitsAndPersists(t *testing.T) {
	index := &recordingIndex{}
	fx := newFixture(t, &index.fakeIndex, nil)
	fx.addSource(t, "wiki", 0.8)

	ingester := biz.NewIngester(fx.registry, index, fx.raw, fixedEmbedder{},
		&biz.IngesterConfig{ChunkSize: 10, ChunkOverlap: 2})

	content := strings.Repeat("abcdefghij", 3) // 30 runes, 4 windows of step 8
	res, err := ingester.Ingest(context.Background(), &biz.IngestRequest{
		SourceID: "wiki", Title: "t", Content: content,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.ChunkCount)
	assert.Equal(t, int64(4), index.inserted.Load())

	docs, err := fx.raw.QueryDocuments(context.Background(), []string{"wiki"}, model.DocumentPredicate{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.DocumentID, docs[0].ID)
	assert.Equal(t, 4, docs[0].ChunkNum)
	assert.NotEmpty(t, docs[0].Hash)

	chunkID := res.DocumentID + "-0000"
	chunks, err := fx.raw.GetChunks(context.Background(), []string{chunkID})
	require.NoError(t, err)
	require.Contains(t, chunks, chunkID)
	assert.Equal(t, "abcdefghij", chunks[chunkID].Content)
	assert.Equal(t, int64(1), chunks[chunkID].VectorID)
}

func TestIngestUnknownSource(t *testing.T) {
	index := &recordingIndex{}
	fx := newFixture(t, &index.fakeIndex, nil)

	ingester := biz.NewIngester(fx.registry, index, fx.raw, fixedEmbedder{}, nil)
	_, err := ingester.Ingest(context.Background(), &biz.IngestRequest{
		SourceID: "ghost", Content: "hello",
	})
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
}

func TestIngestIntoDisabledSource(t *testing.T) {
	// 禁用的源仍可摄取，内容在重新启用前不被查询消费
	index := &recordingIndex{}
	fx := newFixture(t, &index.fakeIndex, nil)
	fx.addSource(t, "wiki", 0.5)
	_, err := fx.registry.SetStatus(context.Background(), "wiki", model.SourceDisabled)
	require.NoError(t, err)

	ingester := biz.NewIngester(fx.registry, index, fx.raw, fixedEmbedder{}, nil)
	res, err := ingester.Ingest(context.Background(), &biz.IngestRequest{
		SourceID: "wiki", Content: "hello world",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
}

func TestIngestRollsBackIndexOnMetadataFailure(t *testing.T) {
	index := &recordingIndex{}
	fx := newFixture(t, &index.fakeIndex, nil)
	fx.addSource(t, "wiki", 0.5)

	ingester := biz.NewIngester(fx.registry, index, &brokenDocStore{RawStore: fx.raw}, fixedEmbedder{}, nil)
	_, err := ingester.Ingest(context.Background(), &biz.IngestRequest{
		SourceID: "wiki", Content: "hello world",
	})
	assert.ErrorIs(t, err, apperrors.ErrIngestFailed)
	assert.Len(t, index.deleted, 1)
}
