// Package milvus wraps the Milvus v2 SDK with the small surface the chunk
// index needs: collection lifecycle, column-based inserts, and ANN search.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/provenance/pkg/options/milvus"
)

// Client holds a connected Milvus SDK client together with the options it
// was created from.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New dials Milvus using opts. Connection establishment is bounded by
// opts.Timeout.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient exposes the SDK client for operations this wrapper does not
// cover, such as filtered searches.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// CollectionSchema describes a vector collection: an auto-ID int64 primary
// key, one float vector field named "embedding", and arbitrary scalar
// metadata fields.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	MetaFields  []MetaField
}

// MetaField is a scalar metadata field. MaxLen only applies to VARCHAR.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int
}

func (s *CollectionSchema) build() *entity.Schema {
	schema := entity.NewSchema().
		WithName(s.Name).
		WithDescription(s.Description).
		WithAutoID(true)

	schema.WithField(
		entity.NewField().
			WithName("id").
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true),
	)
	schema.WithField(
		entity.NewField().
			WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(s.Dimension)),
	)

	for _, f := range s.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		schema.WithField(field)
	}
	return schema
}

// CreateCollection creates the collection, builds an IVF_FLAT index on the
// vector field, and loads it into memory. Creating an already existing
// collection is a no-op.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, schema.build())); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.L2, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, "embedding", idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.loadCollection(ctx, schema.Name)
}

func (c *Client) loadCollection(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// InsertData pairs embeddings with column-oriented metadata. Every metadata
// slice must be the same length as Embeddings.
type InsertData struct {
	Embeddings [][]float32
	Metadata   map[string][]any
}

func metadataColumns(metadata map[string][]any) ([]column.Column, error) {
	columns := make([]column.Column, 0, len(metadata))
	for name, values := range metadata {
		switch values[0].(type) {
		case string:
			strVals := make([]string, len(values))
			for i, val := range values {
				strVals[i] = val.(string)
			}
			columns = append(columns, column.NewColumnVarChar(name, strVals))
		case int64:
			intVals := make([]int64, len(values))
			for i, val := range values {
				intVals[i] = val.(int64)
			}
			columns = append(columns, column.NewColumnInt64(name, intVals))
		default:
			return nil, fmt.Errorf("unsupported metadata type: %T for field %s", values[0], name)
		}
	}
	return columns, nil
}

// Insert writes vectors plus metadata and flushes, so the rows are
// searchable as soon as the call returns. Returns the assigned row IDs.
//
// 每次插入后都 flush，摄取任务需要立即可见的数据；高频写入场景要注意刷新开销。
func (c *Client) Insert(ctx context.Context, collectionName string, data *InsertData) ([]int64, error) {
	metaCols, err := metadataColumns(data.Metadata)
	if err != nil {
		return nil, err
	}

	columns := make([]column.Column, 0, len(metaCols)+1)
	columns = append(columns, column.NewColumnFloatVector("embedding", len(data.Embeddings[0]), data.Embeddings))
	columns = append(columns, metaCols...)

	result, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return nil, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for flush: %w", err)
	}

	return result.IDs.(*column.ColumnInt64).Data(), nil
}

// SearchResult is one ANN hit with its similarity score and the requested
// output fields.
type SearchResult struct {
	ID       int64
	Score    float32
	Metadata map[string]any
}

// Search runs an ANN query over the "embedding" field and returns up to topK
// hits with the given output fields populated.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]SearchResult, error) {
	if err := c.loadCollection(ctx, collectionName); err != nil {
		return nil, err
	}

	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []SearchResult{}, nil
	}
	return parseSearchResults(results[0]), nil
}

func parseSearchResults(rs milvusclient.ResultSet) []SearchResult {
	hits := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{
			Score:    rs.Scores[i],
			Metadata: make(map[string]any),
		}
		if idCol, ok := rs.IDs.(*column.ColumnInt64); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				hit.Metadata[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				hit.Metadata[col.Name()] = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

// DeleteByIDs removes rows by primary key.
func (c *Client) DeleteByIDs(ctx context.Context, collectionName string, ids []int64) error {
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithInt64IDs("id", ids)); err != nil {
		return fmt.Errorf("failed to delete by ids: %w", err)
	}
	return nil
}

// DropCollection drops the collection and everything in it.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the row count reported by Milvus.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
