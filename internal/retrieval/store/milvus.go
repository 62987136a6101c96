package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/provenance/pkg/component/milvus"
)

// MilvusIndex 实现基于 Milvus 的分块索引适配器。
type MilvusIndex struct {
	client     *milvus.Client
	collection string
}

// NewMilvusIndex 创建 Milvus 索引适配器。
func NewMilvusIndex(client *milvus.Client, collection string) *MilvusIndex {
	return &MilvusIndex{client: client, collection: collection}
}

// Capabilities Milvus 支持标量字段过滤表达式下推。
func (s *MilvusIndex) Capabilities() Capabilities {
	return Capabilities{FilterPushdown: true}
}

// EnsureCollection 确保集合存在。
func (s *MilvusIndex) EnsureCollection(ctx context.Context, config *CollectionConfig) error {
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "source_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Insert 批量插入向量。
func (s *MilvusIndex) Insert(ctx context.Context, chunks []*IndexedChunk) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"chunk_id":  make([]any, len(chunks)),
		"source_id": make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["chunk_id"][i] = chunk.ChunkID
		metadata["source_id"][i] = chunk.SourceID
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	ids, err := s.client.Insert(ctx, s.collection, data)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into milvus: %w", err)
	}
	return ids, nil
}

// Search 执行相似度搜索。allowedSources 非 nil 时生成 source_id 过滤表达式
// 并下推到 Milvus；空集合直接短路返回，不访问索引。
func (s *MilvusIndex) Search(ctx context.Context, embedding []float32, topK int, allowedSources []string) ([]*Candidate, error) {
	if allowedSources != nil && len(allowedSources) == 0 {
		return []*Candidate{}, nil
	}

	rawClient := s.client.RawClient()
	if rawClient == nil {
		return nil, fmt.Errorf("milvus client not initialized")
	}

	// 确保集合已加载
	loadTask, err := rawClient.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	searchVectors := []entity.Vector{entity.FloatVector(embedding)}

	opt := milvusclient.NewSearchOption(s.collection, topK, searchVectors).
		WithANNSField("embedding").
		WithSearchParam("ef", "64").
		WithOutputFields("chunk_id", "source_id")
	if allowedSources != nil {
		opt = opt.WithFilter(sourceFilterExpr(allowedSources))
	}

	results, err := rawClient.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search with filter: %w", err)
	}

	if len(results) == 0 {
		return []*Candidate{}, nil
	}

	candidates := make([]*Candidate, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		c := &Candidate{
			Similarity: results[0].Scores[i],
		}

		if idCol, ok := results[0].IDs.(*column.ColumnInt64); ok {
			c.VectorID = idCol.Data()[i]
		}

		for _, field := range results[0].Fields {
			if col, ok := field.(*column.ColumnVarChar); ok {
				switch col.Name() {
				case "chunk_id":
					c.ChunkID = col.Data()[i]
				case "source_id":
					c.SourceID = col.Data()[i]
				}
			}
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

// Delete 按 chunk ID 删除向量。
func (s *MilvusIndex) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	rawClient := s.client.RawClient()
	if rawClient == nil {
		return fmt.Errorf("milvus client not initialized")
	}
	expr := inExpr("chunk_id", chunkIDs)
	if _, err := rawClient.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("failed to delete by chunk ids: %w", err)
	}
	return nil
}

// Stats 返回集合内实体数量。
func (s *MilvusIndex) Stats(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusIndex) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// sourceFilterExpr 生成 source_id 的下推过滤表达式，
// 形如 `source_id in ["a", "b"]`。
func sourceFilterExpr(sourceIDs []string) string {
	return inExpr("source_id", sourceIDs)
}

func inExpr(field string, values []string) string {
	var b strings.Builder
	b.WriteString(field)
	b.WriteString(" in [")
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%q", v))
	}
	b.WriteString("]")
	return b.String()
}

// 确保 MilvusIndex 实现了 ChunkIndex 接口。
var _ ChunkIndex = (*MilvusIndex)(nil)
