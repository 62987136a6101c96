// Package biz 实现检索核心的业务层：源注册表、一致性协调器、
// 混合检索引擎与审计链路。
package biz

import (
	"context"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/metrics"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// Service 定义检索服务接口。
type Service interface {
	// Retrieve 执行一次混合检索查询。
	Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error)

	// RegisterSource 注册知识源。
	RegisterSource(ctx context.Context, src *model.Source) (*model.Source, error)
	// GetSource 获取单个知识源状态。
	GetSource(ctx context.Context, id string) (*model.Source, error)
	// ListSources 返回全部知识源。
	ListSources(ctx context.Context) ([]*model.Source, error)
	// SetSourceStatus 切换源状态，返回切换前的状态。
	SetSourceStatus(ctx context.Context, id string, to model.SourceStatus) (model.SourceStatus, error)

	// Ingest 摄取一个文档。
	Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error)
	// RecordConfidence 写入分块置信分。
	RecordConfidence(ctx context.Context, chunkID, dimension string, value float64) error

	// FetchAudit 按查询 ID 获取审计记录。
	FetchAudit(ctx context.Context, queryID string) (*model.RetrievalRecord, error)

	// Stats 返回服务统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// RetrievalService 组合注册表、协调器、引擎、摄取器与审计链路。
type RetrievalService struct {
	engine   *Engine
	registry *SourceRegistry
	ingester *Ingester
	audit    *AuditTrail
	index    store.ChunkIndex
	raw      store.RawStore
	metrics  *metrics.RetrievalMetrics
}

// NewRetrievalService 创建检索服务实例。
func NewRetrievalService(engine *Engine, registry *SourceRegistry, ingester *Ingester, audit *AuditTrail, index store.ChunkIndex, raw store.RawStore) *RetrievalService {
	return &RetrievalService{
		engine:   engine,
		registry: registry,
		ingester: ingester,
		audit:    audit,
		index:    index,
		raw:      raw,
		metrics:  metrics.Get(),
	}
}

// Retrieve 执行一次混合检索查询。
func (s *RetrievalService) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error) {
	return s.engine.Retrieve(ctx, req)
}

// RegisterSource 注册知识源。
func (s *RetrievalService) RegisterSource(ctx context.Context, src *model.Source) (*model.Source, error) {
	return s.registry.Register(ctx, src)
}

// GetSource 获取单个知识源状态。
func (s *RetrievalService) GetSource(ctx context.Context, id string) (*model.Source, error) {
	return s.registry.Get(ctx, id)
}

// ListSources 返回全部知识源。
func (s *RetrievalService) ListSources(ctx context.Context) ([]*model.Source, error) {
	return s.registry.List(ctx), nil
}

// SetSourceStatus 切换源状态。幂等：目标状态与当前一致时为空操作。
func (s *RetrievalService) SetSourceStatus(ctx context.Context, id string, to model.SourceStatus) (model.SourceStatus, error) {
	prev, err := s.registry.SetStatus(ctx, id, to)
	s.metrics.RecordToggle(err == nil && prev == to, err)
	return prev, err
}

// Ingest 摄取一个文档。
func (s *RetrievalService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	return s.ingester.Ingest(ctx, req)
}

// RecordConfidence 写入分块置信分。
func (s *RetrievalService) RecordConfidence(ctx context.Context, chunkID, dimension string, value float64) error {
	if chunkID == "" || dimension == "" {
		return apperrors.ErrRetrievalInvalidRequest.WithMessage("chunk_id and dimension are required")
	}
	if value < 0 || value > 1 {
		return apperrors.ErrRetrievalInvalidRequest.WithMessage("confidence value must be within [0, 1]")
	}

	chunks, err := s.raw.GetChunks(ctx, []string{chunkID})
	if err != nil {
		return err
	}
	if _, ok := chunks[chunkID]; !ok {
		return apperrors.ErrChunkNotFound
	}

	return s.raw.UpsertConfidence(ctx, &model.ConfidenceScore{
		ChunkID:   chunkID,
		Dimension: dimension,
		Value:     value,
	})
}

// FetchAudit 按查询 ID 获取审计记录。
func (s *RetrievalService) FetchAudit(ctx context.Context, queryID string) (*model.RetrievalRecord, error) {
	return s.audit.Fetch(ctx, queryID)
}

// Stats 返回服务统计信息。
func (s *RetrievalService) Stats(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{
		"metrics": s.metrics.Stats(),
	}

	if count, err := s.index.Stats(ctx); err == nil {
		stats["vector_count"] = count
	}

	sources := s.registry.List(ctx)
	enabled := 0
	for _, src := range sources {
		if src.Status.Active() {
			enabled++
		}
	}
	stats["sources_total"] = len(sources)
	stats["sources_enabled"] = enabled

	return stats, nil
}

// 确保 RetrievalService 实现了 Service 接口。
var _ Service = (*RetrievalService)(nil)
