package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kart-io/provenance/internal/model"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// GormStore 实现基于 gorm 的关系元数据存储。生产环境使用 MySQL，
// 测试使用内存 sqlite。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建关系存储实例并迁移表结构。
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is nil")
	}
	if err := db.AutoMigrate(
		&model.Source{},
		&model.Document{},
		&model.Chunk{},
		&model.ConfidenceScore{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateSource 注册知识源。
func (s *GormStore) CreateSource(ctx context.Context, src *model.Source) error {
	err := s.db.WithContext(ctx).Create(src).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrSourceExists
		}
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// GetSource 按 ID 获取知识源。
func (s *GormStore) GetSource(ctx context.Context, id string) (*model.Source, error) {
	var src model.Source
	err := s.db.WithContext(ctx).First(&src, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &src, nil
}

// ListSources 返回全部知识源，按 ID 排序保证稳定输出。
func (s *GormStore) ListSources(ctx context.Context) ([]*model.Source, error) {
	var sources []*model.Source
	if err := s.db.WithContext(ctx).Order("id asc").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceStatusCAS 以 CAS 语义更新源状态。WHERE 条件带上旧状态，
// 影响行数为 0 说明状态已被并发修改或源不存在。
func (s *GormStore) UpdateSourceStatusCAS(ctx context.Context, id string, from, to model.SourceStatus) error {
	res := s.db.WithContext(ctx).
		Model(&model.Source{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update source status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// 区分不存在与并发修改
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Source{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check source existence: %w", err)
		}
		if count == 0 {
			return apperrors.ErrSourceNotFound
		}
		return apperrors.ErrToggleCASMismatch
	}
	return nil
}

// CreateDocument 在一个事务里写入文档及其分块。
func (s *GormStore) CreateDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
				return fmt.Errorf("failed to create chunks: %w", err)
			}
		}
		return nil
	})
}

// QueryDocuments 按源集合与谓词查询文档。
func (s *GormStore) QueryDocuments(ctx context.Context, sourceIDs []string, pred model.DocumentPredicate) ([]*model.Document, error) {
	q := s.db.WithContext(ctx).Model(&model.Document{})
	if sourceIDs != nil {
		q = q.Where("source_id IN ?", sourceIDs)
	}
	if !pred.IngestedAfter.IsZero() {
		q = q.Where("ingested_at > ?", pred.IngestedAfter)
	}
	if !pred.IngestedBefore.IsZero() {
		q = q.Where("ingested_at < ?", pred.IngestedBefore)
	}
	if pred.Limit > 0 {
		q = q.Limit(pred.Limit)
	}

	var docs []*model.Document
	if err := q.Order("ingested_at desc, id asc").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	return docs, nil
}

// GetChunks 批量获取分块元数据。
func (s *GormStore) GetChunks(ctx context.Context, chunkIDs []string) (map[string]*model.Chunk, error) {
	if len(chunkIDs) == 0 {
		return map[string]*model.Chunk{}, nil
	}
	var chunks []*model.Chunk
	if err := s.db.WithContext(ctx).Where("id IN ?", chunkIDs).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	out := make(map[string]*model.Chunk, len(chunks))
	for _, c := range chunks {
		out[c.ID] = c
	}
	return out, nil
}

// UpsertConfidence 写入一条置信分，存在则覆盖。
func (s *GormStore) UpsertConfidence(ctx context.Context, score *model.ConfidenceScore) error {
	err := s.db.WithContext(ctx).Save(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert confidence score: %w", err)
	}
	return nil
}

// GetConfidence 批量获取分块的聚合置信分（多维度取均值）。
func (s *GormStore) GetConfidence(ctx context.Context, chunkIDs []string) (map[string]float64, error) {
	if len(chunkIDs) == 0 {
		return map[string]float64{}, nil
	}
	var scores []*model.ConfidenceScore
	if err := s.db.WithContext(ctx).Where("chunk_id IN ?", chunkIDs).Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to get confidence scores: %w", err)
	}

	sums := make(map[string]float64, len(scores))
	counts := make(map[string]int, len(scores))
	for _, sc := range scores {
		sums[sc.ChunkID] += sc.Value
		counts[sc.ChunkID]++
	}
	out := make(map[string]float64, len(sums))
	for id, sum := range sums {
		out[id] = sum / float64(counts[id])
	}
	return out, nil
}

// Ping 检查连接。
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// 确保 GormStore 实现了 RawStore 接口。
var _ RawStore = (*GormStore)(nil)
