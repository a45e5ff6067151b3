package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-service/internal/models"
	"card-service/internal/repository"
	"card-service/internal/services"
)

// PublicHandlers serves published cards and accepts event tracking. These
// paths require no authentication.
type PublicHandlers struct {
	cards    *services.CardService
	tracking *services.TrackingService
	logger   *logrus.Logger
}

// NewPublicHandlers creates new public handlers
func NewPublicHandlers(cards *services.CardService, tracking *services.TrackingService, logger *logrus.Logger) *PublicHandlers {
	return &PublicHandlers{
		cards:    cards,
		tracking: tracking,
		logger:   logger,
	}
}

// GetCardBySlug resolves a published card. A slug that does not exist and a
// slug whose card is unpublished produce the same response, so unpublished
// cards are not discoverable. Viewing records a view event best-effort.
// GET /p/:slug
func (h *PublicHandlers) GetCardBySlug(c *gin.Context) {
	card, err := h.cards.ResolveBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to resolve card by slug")
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		return
	}

	h.tracking.RecordAsync(card.ID, models.EventView, services.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	})

	c.JSON(http.StatusOK, h.cards.Response(card))
}

// TrackEvent records one visitor interaction
// POST /api/v1/track
func (h *PublicHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidEventType(req.EventType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported event type"})
		return
	}

	err := h.tracking.Record(c.Request.Context(), req.CardID, req.EventType, services.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		Metadata:  req.Metadata,
	})
	if err != nil {
		// Tracking is best-effort: acknowledge regardless, log the failure.
		h.logger.WithError(err).WithField("card_id", req.CardID).Warn("Failed to record tracked event")
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
