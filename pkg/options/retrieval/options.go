// Package retrieval provides hybrid retrieval configuration options.
package retrieval

import (
	"fmt"
	"time"

	"github.com/kart-io/provenance/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval-specific configuration.
type Options struct {
	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// TopK is the default number of results to return.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ChunkSize is the size of text chunks in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between adjacent chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// OverFetchFactor 索引不支持过滤下推时的超额拉取倍数。
	OverFetchFactor int `json:"over-fetch-factor" mapstructure:"over-fetch-factor"`

	// PropagationDeadline 切换传播到缓存的时限。
	PropagationDeadline time.Duration `json:"propagation-deadline" mapstructure:"propagation-deadline"`

	// AuditMode 审计写入模式，block 或 async。
	AuditMode string `json:"audit-mode" mapstructure:"audit-mode"`

	// SimilarityMetric 原始相似度解释方式：cosine、distance、ip。
	SimilarityMetric string `json:"similarity-metric" mapstructure:"similarity-metric"`

	// Weights 融合权重配置。
	Weights *WeightOptions `json:"weights" mapstructure:"weights"`
}

// WeightOptions 融合权重。三项之和参与归一化，不要求恰好为 1。
type WeightOptions struct {
	Similarity  float64 `json:"similarity" mapstructure:"similarity"`
	Reliability float64 `json:"reliability" mapstructure:"reliability"`
	Confidence  float64 `json:"confidence" mapstructure:"confidence"`
}

// NewWeightOptions 创建默认权重配置。
func NewWeightOptions() *WeightOptions {
	return &WeightOptions{
		Similarity:  0.6,
		Reliability: 0.2,
		Confidence:  0.2,
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:          "retrieval_chunks",
		EmbeddingDim:        768, // nomic-embed-text dimension
		TopK:                5,
		ChunkSize:           800,
		ChunkOverlap:        100,
		OverFetchFactor:     3,
		PropagationDeadline: 2 * time.Second,
		AuditMode:           "block",
		SimilarityMetric:    "cosine",
		Weights:             NewWeightOptions(),
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"retrieval.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"retrieval.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"retrieval.top-k", o.TopK, "Default number of results per query.")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"retrieval.chunk-size", o.ChunkSize, "Size of text chunks in runes.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"retrieval.chunk-overlap", o.ChunkOverlap, "Overlap between adjacent chunks.")
	fs.IntVar(&o.OverFetchFactor, options.Join(prefixes...)+"retrieval.over-fetch-factor", o.OverFetchFactor, "Over-fetch multiplier when the index cannot push filters down.")
	fs.DurationVar(&o.PropagationDeadline, options.Join(prefixes...)+"retrieval.propagation-deadline", o.PropagationDeadline, "Deadline for toggle propagation to caches.")
	fs.StringVar(&o.AuditMode, options.Join(prefixes...)+"retrieval.audit-mode", o.AuditMode, "Audit write mode: block or async.")
	fs.StringVar(&o.SimilarityMetric, options.Join(prefixes...)+"retrieval.similarity-metric", o.SimilarityMetric, "Raw similarity interpretation: cosine, distance or ip.")

	if o.Weights == nil {
		o.Weights = NewWeightOptions()
	}
	fs.Float64Var(&o.Weights.Similarity, options.Join(prefixes...)+"retrieval.weights.similarity", o.Weights.Similarity, "Fusion weight of normalized similarity.")
	fs.Float64Var(&o.Weights.Reliability, options.Join(prefixes...)+"retrieval.weights.reliability", o.Weights.Reliability, "Fusion weight of source reliability.")
	fs.Float64Var(&o.Weights.Confidence, options.Join(prefixes...)+"retrieval.weights.confidence", o.Weights.Confidence, "Fusion weight of chunk confidence.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("retrieval.collection cannot be empty"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.embedding-dim must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top-k must be positive"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("retrieval.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.OverFetchFactor <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.over-fetch-factor must be positive"))
	}
	if o.AuditMode != "block" && o.AuditMode != "async" {
		errs = append(errs, fmt.Errorf("retrieval.audit-mode must be block or async"))
	}
	switch o.SimilarityMetric {
	case "cosine", "distance", "ip":
	default:
		errs = append(errs, fmt.Errorf("retrieval.similarity-metric must be cosine, distance or ip"))
	}
	if o.Weights != nil {
		sum := o.Weights.Similarity + o.Weights.Reliability + o.Weights.Confidence
		if o.Weights.Similarity < 0 || o.Weights.Reliability < 0 || o.Weights.Confidence < 0 || sum <= 0 {
			errs = append(errs, fmt.Errorf("retrieval.weights must be non-negative with a positive sum"))
		}
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.Weights == nil {
		o.Weights = NewWeightOptions()
	}
	return nil
}
