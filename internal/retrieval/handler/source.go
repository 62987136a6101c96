package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/provenance/internal/model"
)

// defaultReliability is used until the qualification step scores a source.
const defaultReliability = 0.5

// RegisterSourceRequest represents a source registration request.
// Reliability is a pointer so an explicit 0 is distinguishable from an
// absent field.
type RegisterSourceRequest struct {
	ID          string   `json:"id" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Reliability *float64 `json:"reliability"`
	Status      string   `json:"status"`
}

// RegisterSource registers a new knowledge source.
func (h *Handler) RegisterSource(c *gin.Context) {
	var req RegisterSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	reliability := defaultReliability
	if req.Reliability != nil {
		reliability = *req.Reliability
	}

	src, err := h.service.RegisterSource(c.Request.Context(), &model.Source{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Reliability: reliability,
		Status:      model.SourceStatus(req.Status),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, src)
}

// ListSources returns all registered sources.
func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.service.ListSources(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, gin.H{"sources": sources, "total": len(sources)})
}

// GetSource returns one source by ID.
func (h *Handler) GetSource(c *gin.Context) {
	src, err := h.service.GetSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, src)
}

// SetSourceStatusRequest represents a source toggle request.
type SetSourceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetSourceStatus toggles one source between enabled, disabled and quarantined.
func (h *Handler) SetSourceStatus(c *gin.Context) {
	var req SetSourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	id := c.Param("id")
	prev, err := h.service.SetSourceStatus(c.Request.Context(), id, model.SourceStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, gin.H{"source_id": id, "previous_status": prev, "status": req.Status})
}

// SetConfidenceRequest represents a chunk confidence update.
type SetConfidenceRequest struct {
	Dimension string  `json:"dimension" binding:"required"`
	Value     float64 `json:"value"`
}

// SetConfidence records a confidence score for one chunk dimension.
func (h *Handler) SetConfidence(c *gin.Context) {
	var req SetConfidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.service.RecordConfidence(c.Request.Context(), c.Param("id"), req.Dimension, req.Value); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, nil)
}
