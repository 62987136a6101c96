// Package router provides retrieval service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/provenance/internal/retrieval/handler"
	"github.com/kart-io/provenance/pkg/infra/server"
)

// Register registers the retrieval service routes.
func Register(mgr *server.Manager, h *handler.Handler, ready func() error) error {
	httpServer := mgr.HTTPServer()
	if httpServer == nil {
		return nil
	}
	engine := httpServer.Engine()

	registerHealth(engine, ready)

	v1 := engine.Group("/v1")
	{
		v1.POST("/retrieve", h.Retrieve)

		sources := v1.Group("/sources")
		{
			sources.POST("", h.RegisterSource)
			sources.GET("", h.ListSources)
			sources.GET("/:id", h.GetSource)
			sources.POST("/:id/status", h.SetSourceStatus)
		}

		v1.POST("/documents", h.Ingest)
		v1.PUT("/chunks/:id/confidence", h.SetConfidence)

		v1.GET("/audit/:query_id", h.GetAuditRecord)
		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
	return nil
}

// registerHealth 注册存活与就绪探针。就绪检查探测下游依赖。
func registerHealth(engine *gin.Engine, ready func() error) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
