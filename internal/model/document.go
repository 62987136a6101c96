package model

import (
	"time"
)

// Document represents one ingested document. RawContentRef points at the raw
// content location (object store key or file path); the relational row holds
// provenance metadata only.
type Document struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SourceID      string    `json:"source_id" gorm:"type:varchar(64);index;not null"`
	Title         string    `json:"title" gorm:"type:varchar(512)"`
	RawContentRef string    `json:"raw_content_ref" gorm:"type:varchar(1024)"`
	Hash          string    `json:"hash" gorm:"type:varchar(64);index"` // Content hash for deduplication
	ChunkNum      int       `json:"chunk_num" gorm:"default:0"`
	IngestedAt    time.Time `json:"ingested_at" gorm:"index;autoCreateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Chunk is the relational record for one indexed chunk. The embedding lives
// in the vector index under VectorID; toggling a source never touches it.
type Chunk struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DocumentID string    `json:"document_id" gorm:"type:varchar(64);index;not null"`
	SourceID   string    `json:"source_id" gorm:"type:varchar(64);index;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Seq        int       `json:"seq" gorm:"default:0"`
	StartPos   int       `json:"start_pos" gorm:"default:0"`
	EndPos     int       `json:"end_pos" gorm:"default:0"`
	VectorID   int64     `json:"vector_id" gorm:"index"` // ID in Milvus
	IngestedAt time.Time `json:"ingested_at" gorm:"index;autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}

// ConfidenceScore is one qualification score for a chunk, written by the
// offline qualification step. Dimension distinguishes independent scorers.
type ConfidenceScore struct {
	ChunkID   string    `json:"chunk_id" gorm:"primaryKey;type:varchar(64)"`
	Dimension string    `json:"dimension" gorm:"primaryKey;type:varchar(64)"`
	Value     float64   `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ConfidenceScore.
func (ConfidenceScore) TableName() string {
	return "confidence_scores"
}

// DocumentPredicate narrows relational document queries on the read path.
// Zero values mean no constraint.
type DocumentPredicate struct {
	IngestedAfter  time.Time
	IngestedBefore time.Time
	Limit          int
}
