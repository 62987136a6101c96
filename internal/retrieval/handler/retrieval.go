package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
)

// retrieveTimeout bounds one retrieval request end to end.
const retrieveTimeout = 30 * time.Second

// RetrieveRequest represents a retrieval query.
type RetrieveRequest struct {
	QueryText   string    `json:"query_text"`
	QueryVector []float32 `json:"query_vector"`
	TopK        int       `json:"top_k"`
	Sources     []string  `json:"sources"`

	SimilarityWeight  *float64 `json:"similarity_weight"`
	ReliabilityWeight *float64 `json:"reliability_weight"`
	ConfidenceWeight  *float64 `json:"confidence_weight"`
}

// Retrieve performs one hybrid retrieval query.
func (h *Handler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), retrieveTimeout)
	defer cancel()

	bizReq := &biz.RetrieveRequest{
		QueryText:    req.QueryText,
		QueryVector:  req.QueryVector,
		TopK:         req.TopK,
		SourceFilter: req.Sources,
	}
	// 三个权重要么都省略，要么整组提供，缺省项按 0 参与归一化
	if req.SimilarityWeight != nil || req.ReliabilityWeight != nil || req.ConfidenceWeight != nil {
		w := model.FusionWeights{}
		if req.SimilarityWeight != nil {
			w.Similarity = *req.SimilarityWeight
		}
		if req.ReliabilityWeight != nil {
			w.Reliability = *req.ReliabilityWeight
		}
		if req.ConfidenceWeight != nil {
			w.Confidence = *req.ConfidenceWeight
		}
		bizReq.Weights = &w
	}

	resp, err := h.service.Retrieve(ctx, bizReq)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, resp)
}

// IngestRequest represents a document ingestion request.
type IngestRequest struct {
	SourceID      string `json:"source_id" binding:"required"`
	Title         string `json:"title"`
	Content       string `json:"content" binding:"required"`
	RawContentRef string `json:"raw_content_ref"`
}

// Ingest ingests one document into a registered source.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	res, err := h.service.Ingest(c.Request.Context(), &biz.IngestRequest{
		SourceID:      req.SourceID,
		Title:         req.Title,
		Content:       req.Content,
		RawContentRef: req.RawContentRef,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, res)
}

// Stats returns service statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, stats)
}
