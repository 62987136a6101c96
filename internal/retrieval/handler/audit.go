package handler

import (
	"github.com/gin-gonic/gin"
)

// GetAuditRecord returns the audit record for one query ID.
func (h *Handler) GetAuditRecord(c *gin.Context) {
	record, err := h.service.FetchAudit(c.Request.Context(), c.Param("query_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, record)
}
