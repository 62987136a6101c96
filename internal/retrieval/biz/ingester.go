package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/metrics"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	"github.com/kart-io/provenance/pkg/id"
	"github.com/kart-io/provenance/pkg/llm"
)

// IngesterConfig 摄取配置。
type IngesterConfig struct {
	// ChunkSize 单个分块的最大字符数。
	ChunkSize int
	// ChunkOverlap 相邻分块的重叠字符数。
	ChunkOverlap int
}

// DefaultIngesterConfig 返回默认摄取配置。
func DefaultIngesterConfig() *IngesterConfig {
	return &IngesterConfig{ChunkSize: 800, ChunkOverlap: 100}
}

// IngestRequest 摄取一个文档。
type IngestRequest struct {
	SourceID      string
	Title         string
	Content       string
	RawContentRef string
}

// IngestResult 摄取结果。
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// Ingester 文档摄取管道：切块、向量化、写入索引与关系存储。
type Ingester struct {
	registry *SourceRegistry
	index    store.ChunkIndex
	raw      store.RawStore
	embedder llm.EmbeddingProvider
	config   *IngesterConfig
	idgen    *id.ULIDGenerator
}

// NewIngester 创建摄取管道。
func NewIngester(registry *SourceRegistry, index store.ChunkIndex, raw store.RawStore, embedder llm.EmbeddingProvider, config *IngesterConfig) *Ingester {
	if config == nil {
		config = DefaultIngesterConfig()
	}
	return &Ingester{
		registry: registry,
		index:    index,
		raw:      raw,
		embedder: embedder,
		config:   config,
		idgen:    id.NewULIDGenerator(),
	}
}

// Ingest 摄取一个文档。源必须已注册；禁用的源也可以摄取，
// 内容在重新启用前不会被查询消费。
func (ing *Ingester) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if req.SourceID == "" || req.Content == "" {
		return nil, apperrors.ErrRetrievalInvalidRequest.WithMessage("source_id and content are required")
	}
	if _, err := ing.registry.Get(ctx, req.SourceID); err != nil {
		return nil, err
	}
	if ing.embedder == nil {
		return nil, apperrors.ErrIngestFailed.WithMessage("no embedding provider configured")
	}

	docID := ing.idgen.Generate()
	pieces := splitText(req.Content, ing.config.ChunkSize, ing.config.ChunkOverlap)

	embeddings, err := ing.embedder.Embed(ctx, piecesText(pieces))
	if err != nil {
		metrics.Get().RecordIngest(0, 0, err)
		return nil, apperrors.ErrEmbedding.WithCause(err)
	}
	if len(embeddings) != len(pieces) {
		err := fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(pieces))
		metrics.Get().RecordIngest(0, 0, err)
		return nil, apperrors.ErrIngestFailed.WithCause(err)
	}

	indexed := make([]*store.IndexedChunk, len(pieces))
	chunks := make([]*model.Chunk, len(pieces))
	now := time.Now()
	for i, p := range pieces {
		chunkID := fmt.Sprintf("%s-%04d", docID, i)
		indexed[i] = &store.IndexedChunk{
			ChunkID:   chunkID,
			SourceID:  req.SourceID,
			Embedding: embeddings[i],
		}
		chunks[i] = &model.Chunk{
			ID:         chunkID,
			DocumentID: docID,
			SourceID:   req.SourceID,
			Content:    p.text,
			Seq:        i,
			StartPos:   p.start,
			EndPos:     p.end,
			IngestedAt: now,
		}
	}

	vectorIDs, err := ing.index.Insert(ctx, indexed)
	if err != nil {
		metrics.Get().RecordIngest(0, 0, err)
		return nil, apperrors.ErrIngestFailed.WithCause(err)
	}
	for i := range chunks {
		if i < len(vectorIDs) {
			chunks[i].VectorID = vectorIDs[i]
		}
	}

	doc := &model.Document{
		ID:            docID,
		SourceID:      req.SourceID,
		Title:         req.Title,
		RawContentRef: req.RawContentRef,
		Hash:          contentHash(req.Content),
		ChunkNum:      len(chunks),
		IngestedAt:    now,
	}
	if err := ing.raw.CreateDocument(ctx, doc, chunks); err != nil {
		// 索引已写入但关系元数据失败，回滚向量避免悬挂候选。
		chunkIDs := make([]string, len(chunks))
		for i, c := range chunks {
			chunkIDs[i] = c.ID
		}
		if derr := ing.index.Delete(ctx, chunkIDs); derr != nil {
			logger.Errorw("failed to roll back index after metadata write failure",
				"document_id", docID, "error", derr)
		}
		metrics.Get().RecordIngest(0, 0, err)
		return nil, apperrors.ErrIngestFailed.WithCause(err)
	}

	metrics.Get().RecordIngest(1, len(chunks), nil)
	logger.Infow("document ingested", "document_id", docID, "source_id", req.SourceID, "chunks", len(chunks))
	return &IngestResult{DocumentID: docID, ChunkCount: len(chunks)}, nil
}

type textPiece struct {
	text  string
	start int
	end   int
}

// splitText 以固定窗口加重叠切分文本，按 rune 计数避免切断多字节字符。
func splitText(content string, size, overlap int) []textPiece {
	if size <= 0 {
		size = DefaultIngesterConfig().ChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(content)
	if len(runes) <= size {
		return []textPiece{{text: content, start: 0, end: len(runes)}}
	}

	var pieces []textPiece
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, textPiece{
			text:  string(runes[start:end]),
			start: start,
			end:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return pieces
}

func piecesText(pieces []textPiece) []string {
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
