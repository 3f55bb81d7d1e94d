package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerhub/backend/internal/infrastructure/persistence"
)

// SystemHandler serves health and readiness probes
type SystemHandler struct {
	BaseHandler
	db      *persistence.Database
	started time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{db: db, started: time.Now()}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Ready handles GET /ready; it fails when the database is unreachable
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	h.Success(c, gin.H{"status": "ready"})
}
