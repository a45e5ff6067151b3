package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-service/internal/models"
	"card-service/internal/repository"
	"card-service/internal/services"
)

// AnalyticsHandlers handles the authenticated dashboard surface
type AnalyticsHandlers struct {
	dashboard  *services.DashboardService
	aggregator *services.AggregationService
	logger     *logrus.Logger
}

// NewAnalyticsHandlers creates new analytics handlers
func NewAnalyticsHandlers(dashboard *services.DashboardService, aggregator *services.AggregationService, logger *logrus.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		dashboard:  dashboard,
		aggregator: aggregator,
		logger:     logger,
	}
}

// GetOverview composes metrics across all of the user's cards
// GET /api/v1/analytics/overview?period=7d
func (h *AnalyticsHandlers) GetOverview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	days, err := services.ParsePeriod(c.DefaultQuery("period", "7d"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics, err := h.dashboard.Overview(c.Request.Context(), services.Scope{UserID: userID}, days)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compose overview metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get analytics overview"})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// GetCardAnalytics composes metrics for one owned card
// GET /api/v1/analytics/cards/:id?period=30d
func (h *AnalyticsHandlers) GetCardAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	days, err := services.ParsePeriod(c.DefaultQuery("period", "30d"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics, err := h.dashboard.Overview(c.Request.Context(), services.Scope{UserID: userID, CardID: &cardID}, days)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to compose card analytics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get card analytics"})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// Aggregate triggers a rollup for one day or a backfill range. Re-running is
// safe: the aggregator overwrites summaries instead of adding to them.
// POST /api/v1/analytics/aggregate
func (h *AnalyticsHandlers) Aggregate(c *gin.Context) {
	var req models.AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case req.Date != "":
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		result, err := h.aggregator.AggregateDay(c.Request.Context(), date)
		if err != nil {
			h.logger.WithError(err).Error("Aggregation run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Aggregation failed"})
			return
		}
		c.JSON(http.StatusOK, result)

	case req.From != "" && req.To != "":
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		if to.Before(from) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
			return
		}
		results, err := h.aggregator.AggregateRange(c.Request.Context(), from, to)
		if err != nil {
			h.logger.WithError(err).Error("Backfill aggregation run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Aggregation failed", "partial": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide either date or from/to"})
	}
}
