package model

import "time"

// FusionWeights are the three fusion weight components. They must be
// non-negative with a positive sum; Normalize scales them to sum to 1.
type FusionWeights struct {
	Similarity  float64 `json:"similarity"`
	Reliability float64 `json:"reliability"`
	Confidence  float64 `json:"confidence"`
}

// DefaultFusionWeights returns the default weight split.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Similarity: 0.6, Reliability: 0.2, Confidence: 0.2}
}

// Valid reports whether the weights are usable for fusion.
func (w FusionWeights) Valid() bool {
	if w.Similarity < 0 || w.Reliability < 0 || w.Confidence < 0 {
		return false
	}
	return w.Similarity+w.Reliability+w.Confidence > 0
}

// Normalize returns the weights scaled to sum to 1.
func (w FusionWeights) Normalize() FusionWeights {
	sum := w.Similarity + w.Reliability + w.Confidence
	if sum == 0 {
		return DefaultFusionWeights()
	}
	return FusionWeights{
		Similarity:  w.Similarity / sum,
		Reliability: w.Reliability / sum,
		Confidence:  w.Confidence / sum,
	}
}

// ConsultedChunk is one candidate the engine looked at, with every component
// that went into its fused score. The consulted set is always a superset of
// the final ranking.
type ConsultedChunk struct {
	ChunkID     string  `json:"chunk_id"`
	SourceID    string  `json:"source_id"`
	Similarity  float64 `json:"similarity"`
	Reliability float64 `json:"reliability"`
	Confidence  float64 `json:"confidence"`
	Score       float64 `json:"score"`
}

// RetrievalRecord is the append-only audit record for one query. It carries
// enough to replay why each chunk was (or was not) part of the answer.
type RetrievalRecord struct {
	QueryID        string           `json:"query_id"`
	Timestamp      time.Time        `json:"timestamp"`
	EnabledSources []string         `json:"enabled_sources"`
	SnapshotVer    uint64           `json:"snapshot_version"`
	Weights        FusionWeights    `json:"weights"`
	Consulted      []ConsultedChunk `json:"consulted"`
	FinalRanking   []string         `json:"final_ranking"`
	Degraded       bool             `json:"degraded"`
	ElapsedMs      int64            `json:"elapsed_ms"`
}

// RankedResult is one entry of the response ranking.
type RankedResult struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	SourceID    string  `json:"source_id"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	Similarity  float64 `json:"similarity"`
	Reliability float64 `json:"reliability"`
	Confidence  float64 `json:"confidence"`
}
