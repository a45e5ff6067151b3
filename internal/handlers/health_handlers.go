package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandlers serves liveness and readiness probes
type HealthHandlers struct {
	db *gorm.DB
}

// NewHealthHandlers creates new health handlers
func NewHealthHandlers(db *gorm.DB) *HealthHandlers {
	return &HealthHandlers{db: db}
}

// Health is the liveness probe
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "card-service"})
}

// Ready is the readiness probe; it checks the database connection
// GET /ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "database error"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
