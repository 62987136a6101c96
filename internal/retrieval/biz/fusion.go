package biz

import (
	"sort"
	"time"

	"github.com/kart-io/provenance/internal/model"
)

// SimilarityMetric 标识索引返回的原始分数语义。
type SimilarityMetric string

const (
	// MetricCosine 余弦相似度，取值 [-1, 1]。
	MetricCosine SimilarityMetric = "cosine"
	// MetricDistance 距离分数，越小越相似，取值 [0, +inf)。
	MetricDistance SimilarityMetric = "distance"
	// MetricInnerProduct 内积分数，这里假定已经落在 [0, 1]。
	MetricInnerProduct SimilarityMetric = "ip"
)

// normalizeSimilarity maps a raw index score into [0, 1].
func normalizeSimilarity(metric SimilarityMetric, raw float64) float64 {
	var v float64
	switch metric {
	case MetricDistance:
		v = 1.0 / (1.0 + raw)
	case MetricCosine:
		v = (raw + 1.0) / 2.0
	default:
		v = raw
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scoredCandidate is a candidate with everything fusion needs.
type scoredCandidate struct {
	ChunkID     string
	SourceID    string
	DocumentID  string
	Content     string
	Similarity  float64 // normalized
	Reliability float64
	Confidence  float64
	Score       float64
	IngestedAt  time.Time
}

// fuse computes the weighted score for each candidate and sorts the slice
// deterministically: score desc, then ingested_at desc, then chunk ID asc.
func fuse(candidates []*scoredCandidate, w model.FusionWeights) {
	for _, c := range candidates {
		c.Score = w.Similarity*c.Similarity +
			w.Reliability*c.Reliability +
			w.Confidence*c.Confidence
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.IngestedAt.Equal(b.IngestedAt) {
			return a.IngestedAt.After(b.IngestedAt)
		}
		return a.ChunkID < b.ChunkID
	})
}
