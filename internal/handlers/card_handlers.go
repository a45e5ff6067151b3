package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-service/internal/models"
	"card-service/internal/repository"
	"card-service/internal/services"
)

// CardHandlers handles the authenticated card CRUD surface
type CardHandlers struct {
	service *services.CardService
	logger  *logrus.Logger
}

// NewCardHandlers creates new card handlers
func NewCardHandlers(service *services.CardService, logger *logrus.Logger) *CardHandlers {
	return &CardHandlers{service: service, logger: logger}
}

// Create creates a card for the authenticated user
// POST /api/v1/cards
func (h *CardHandlers) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.service.Create(c.Request.Context(), &userID, &req)
	if err != nil {
		h.respondCardError(c, err, "Failed to create card")
		return
	}

	c.JSON(http.StatusCreated, h.service.Response(card))
}

// List returns all cards of the authenticated user
// GET /api/v1/cards
func (h *CardHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	cards, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cards")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list cards"})
		return
	}

	responses := make([]*models.CardResponse, len(cards))
	for i := range cards {
		responses[i] = h.service.Response(&cards[i])
	}
	c.JSON(http.StatusOK, gin.H{"cards": responses, "total": len(responses)})
}

// Get returns one owned card
// GET /api/v1/cards/:id
func (h *CardHandlers) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	card, err := h.service.GetOwned(c.Request.Context(), id, userID)
	if err != nil {
		h.respondCardError(c, err, "Failed to get card")
		return
	}

	c.JSON(http.StatusOK, h.service.Response(card))
}

// Update applies changes to an owned card
// PUT /api/v1/cards/:id
func (h *CardHandlers) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	var req models.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.service.Update(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.respondCardError(c, err, "Failed to update card")
		return
	}

	c.JSON(http.StatusOK, h.service.Response(card))
}

// Delete removes an owned card and its analytics data
// DELETE /api/v1/cards/:id
func (h *CardHandlers) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		h.respondCardError(c, err, "Failed to delete card")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Card deleted"})
}

// Publish makes an owned card publicly reachable at its slug
// POST /api/v1/cards/:id/publish
func (h *CardHandlers) Publish(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	card, err := h.service.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.respondCardError(c, err, "Failed to publish card")
		return
	}

	c.JSON(http.StatusOK, h.service.Response(card))
}

// Unpublish takes an owned card offline
// POST /api/v1/cards/:id/unpublish
func (h *CardHandlers) Unpublish(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card id"})
		return
	}

	card, err := h.service.Unpublish(c.Request.Context(), id, userID)
	if err != nil {
		h.respondCardError(c, err, "Failed to unpublish card")
		return
	}

	c.JSON(http.StatusOK, h.service.Response(card))
}

// respondCardError maps service errors onto HTTP statuses. Ownership
// mismatches surface as not-found so foreign cards stay invisible.
func (h *CardHandlers) respondCardError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, repository.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
	case errors.Is(err, services.ErrInvalidSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already in use"})
	default:
		h.logger.WithError(err).Error(logMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}
