package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/provenance/internal/model"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// retrievalRecordRow 是审计记录的落库形态。结构化字段序列化为 JSON 存储，
// 读路径只按 query_id 点查，不需要按内部字段过滤。
type retrievalRecordRow struct {
	QueryID        string    `gorm:"primaryKey;type:varchar(64)"`
	Timestamp      time.Time `gorm:"index;not null"`
	EnabledSources string    `gorm:"type:text"`
	SnapshotVer    uint64    `gorm:"not null"`
	Weights        string    `gorm:"type:varchar(255)"`
	Consulted      string    `gorm:"type:text"`
	FinalRanking   string    `gorm:"type:text"`
	Degraded       bool      `gorm:"not null"`
	ElapsedMs      int64     `gorm:"not null"`
}

func (retrievalRecordRow) TableName() string { return "retrieval_records" }

// GormAuditStore 实现基于 gorm 的只追加审计存储。
type GormAuditStore struct {
	db *gorm.DB
}

// NewGormAuditStore 创建审计存储并迁移表结构。
func NewGormAuditStore(db *gorm.DB) (*GormAuditStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is nil")
	}
	if err := db.AutoMigrate(&retrievalRecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return &GormAuditStore{db: db}, nil
}

// Append 追加一条检索记录。只有 Create，没有更新或删除路径。
func (s *GormAuditStore) Append(ctx context.Context, record *model.RetrievalRecord) error {
	row, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to append retrieval record: %w", err)
	}
	return nil
}

// Get 按查询 ID 获取记录。
func (s *GormAuditStore) Get(ctx context.Context, queryID string) (*model.RetrievalRecord, error) {
	var row retrievalRecordRow
	err := s.db.WithContext(ctx).First(&row, "query_id = ?", queryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get retrieval record: %w", err)
	}
	return decodeRecord(&row)
}

func encodeRecord(record *model.RetrievalRecord) (*retrievalRecordRow, error) {
	enabled, err := json.Marshal(record.EnabledSources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enabled sources: %w", err)
	}
	weights, err := json.Marshal(record.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weights: %w", err)
	}
	consulted, err := json.Marshal(record.Consulted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal consulted chunks: %w", err)
	}
	ranking, err := json.Marshal(record.FinalRanking)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal final ranking: %w", err)
	}
	return &retrievalRecordRow{
		QueryID:        record.QueryID,
		Timestamp:      record.Timestamp,
		EnabledSources: string(enabled),
		SnapshotVer:    record.SnapshotVer,
		Weights:        string(weights),
		Consulted:      string(consulted),
		FinalRanking:   string(ranking),
		Degraded:       record.Degraded,
		ElapsedMs:      record.ElapsedMs,
	}, nil
}

func decodeRecord(row *retrievalRecordRow) (*model.RetrievalRecord, error) {
	record := &model.RetrievalRecord{
		QueryID:     row.QueryID,
		Timestamp:   row.Timestamp,
		SnapshotVer: row.SnapshotVer,
		Degraded:    row.Degraded,
		ElapsedMs:   row.ElapsedMs,
	}
	if err := json.Unmarshal([]byte(row.EnabledSources), &record.EnabledSources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enabled sources: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Weights), &record.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Consulted), &record.Consulted); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consulted chunks: %w", err)
	}
	if err := json.Unmarshal([]byte(row.FinalRanking), &record.FinalRanking); err != nil {
		return nil, fmt.Errorf("failed to unmarshal final ranking: %w", err)
	}
	return record, nil
}

// 确保 GormAuditStore 实现了 AuditStore 接口。
var _ AuditStore = (*GormAuditStore)(nil)
