// Package store 定义检索核心的存储适配层：向量索引、关系元数据与审计存储。
package store

import (
	"context"

	"github.com/kart-io/provenance/internal/model"
)

// IndexedChunk 是写入向量索引的一条记录。
type IndexedChunk struct {
	ChunkID   string
	SourceID  string
	Embedding []float32
}

// Candidate 是向量检索返回的一个候选。Similarity 为索引返回的原始分数，
// 归一化在引擎侧完成。
type Candidate struct {
	VectorID   int64
	ChunkID    string
	SourceID   string
	Similarity float32
}

// Capabilities 描述向量索引适配器的能力。
type Capabilities struct {
	// FilterPushdown 表示索引支持按 source_id 的谓词下推。
	// 不支持时引擎改用超额拉取加后过滤。
	FilterPushdown bool
}

// CollectionConfig 定义向量集合的配置。
type CollectionConfig struct {
	Name        string
	Description string
	Dimension   int
}

// ChunkIndex 是向量索引适配器。切换源状态永远不会修改索引内容。
type ChunkIndex interface {
	// EnsureCollection 确保集合存在。
	EnsureCollection(ctx context.Context, config *CollectionConfig) error

	// Insert 批量写入向量，返回索引内部 ID。
	Insert(ctx context.Context, chunks []*IndexedChunk) ([]int64, error)

	// Search 执行相似度搜索。allowedSources 非 nil 时按 source_id 下推过滤；
	// 仅在 Capabilities().FilterPushdown 为 true 时生效。
	Search(ctx context.Context, embedding []float32, topK int, allowedSources []string) ([]*Candidate, error)

	// Delete 按 chunk ID 删除向量。
	Delete(ctx context.Context, chunkIDs []string) error

	// Stats 返回集合内实体数量。
	Stats(ctx context.Context) (int64, error)

	// Capabilities 返回适配器能力。
	Capabilities() Capabilities

	// Close 关闭连接。
	Close(ctx context.Context) error
}

// RawStore 是关系元数据存储适配器：知识源、文档、分块与置信分。
type RawStore interface {
	// CreateSource 注册知识源；ID 冲突返回 ErrSourceExists。
	CreateSource(ctx context.Context, src *model.Source) error

	// GetSource 按 ID 获取知识源。
	GetSource(ctx context.Context, id string) (*model.Source, error)

	// ListSources 返回全部知识源。
	ListSources(ctx context.Context) ([]*model.Source, error)

	// UpdateSourceStatusCAS 以 CAS 语义更新源状态：仅当当前状态等于 from
	// 时提交，否则返回 ErrToggleCASMismatch。
	UpdateSourceStatusCAS(ctx context.Context, id string, from, to model.SourceStatus) error

	// CreateDocument 写入文档及其分块。
	CreateDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error

	// QueryDocuments 按源集合与谓词查询文档。
	QueryDocuments(ctx context.Context, sourceIDs []string, pred model.DocumentPredicate) ([]*model.Document, error)

	// GetChunks 批量获取分块元数据。
	GetChunks(ctx context.Context, chunkIDs []string) (map[string]*model.Chunk, error)

	// UpsertConfidence 写入一条置信分。
	UpsertConfidence(ctx context.Context, score *model.ConfidenceScore) error

	// GetConfidence 批量获取分块的聚合置信分（多维度取均值）。
	// 缺失的分块不出现在返回 map 中。
	GetConfidence(ctx context.Context, chunkIDs []string) (map[string]float64, error)

	// Ping 检查连接。
	Ping(ctx context.Context) error
}

// AuditStore 是只追加的审计存储。没有更新或删除路径。
type AuditStore interface {
	// Append 追加一条检索记录。
	Append(ctx context.Context, record *model.RetrievalRecord) error

	// Get 按查询 ID 获取记录；不存在返回 ErrRecordNotFound。
	Get(ctx context.Context, queryID string) (*model.RetrievalRecord, error)
}
