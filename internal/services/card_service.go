package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-service/internal/events"
	"card-service/internal/models"
	"card-service/internal/repository"
	"card-service/internal/slug"
)

var ErrInvalidSlug = errors.New("slug must contain only lowercase letters, digits and hyphens")

// cardStore is the subset of CardRepository the card service depends on.
type cardStore interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Card, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error)
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CardService handles business logic for cards, including slug allocation
type CardService struct {
	cards     cardStore
	publisher *events.Publisher
	baseURL   string
	logger    *logrus.Logger
}

// NewCardService creates a new card service
func NewCardService(cards cardStore, publisher *events.Publisher, baseURL string, logger *logrus.Logger) *CardService {
	return &CardService{
		cards:     cards,
		publisher: publisher,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Create creates a card, allocating a slug from the owner's name unless an
// explicit custom slug was supplied.
func (s *CardService) Create(ctx context.Context, userID *uuid.UUID, req *models.CreateCardRequest) (*models.Card, error) {
	card := &models.Card{
		UserID:      userID,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Title:       req.Title,
		Company:     req.Company,
		Bio:         req.Bio,
		Email:       req.Email,
		Phone:       req.Phone,
		Website:     req.Website,
		Theme:       req.Theme,
		SocialLinks: req.SocialLinks,
	}

	if req.CustomSlug != "" {
		candidate := strings.ToLower(strings.TrimSpace(req.CustomSlug))
		if !slug.IsValid(candidate) {
			return nil, ErrInvalidSlug
		}
		taken, err := s.cards.SlugExists(ctx, candidate, uuid.Nil)
		if err != nil {
			return nil, fmt.Errorf("slug lookup failed: %w", err)
		}
		if taken {
			return nil, repository.ErrSlugTaken
		}
		card.CustomSlug = &candidate

		// Explicit slugs are not retried: a write-time conflict is terminal.
		if err := s.cards.Create(ctx, card); err != nil {
			return nil, err
		}
	} else {
		if err := s.createWithAllocatedSlug(ctx, card); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"card_id": card.ID,
		"slug":    derefSlug(card.CustomSlug),
	}).Info("Card created")

	return card, nil
}

// createWithAllocatedSlug allocates a slug and inserts the card, retrying
// with the next counter value when a concurrent creation wins the same slug
// at the unique index.
func (s *CardService) createWithAllocatedSlug(ctx context.Context, card *models.Card) error {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		allocated, err := AllocateSlug(ctx, card.FirstName, card.LastName, func(ctx context.Context, candidate string) (bool, error) {
			return s.cards.SlugExists(ctx, candidate, card.ID)
		})
		if err != nil {
			return err
		}
		if allocated == "" {
			card.CustomSlug = nil
			return s.cards.Create(ctx, card)
		}

		card.CustomSlug = &allocated
		err = s.cards.Create(ctx, card)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			return err
		}
		s.logger.WithField("slug", allocated).Debug("Slug lost to concurrent creation, retrying")
	}
	return fmt.Errorf("could not allocate a unique slug after %d attempts: %w", maxSlugAttempts, repository.ErrSlugTaken)
}

// updateWithAllocatedSlug allocates a slug for the card's current name and
// saves the card, retrying with the next counter value when a concurrent
// write wins the same slug at the unique index. fallback is used when the
// name yields no usable slug; with an empty fallback the stored slug is
// left untouched.
func (s *CardService) updateWithAllocatedSlug(ctx context.Context, card *models.Card, fallback string) error {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		allocated, err := AllocateSlug(ctx, card.FirstName, card.LastName, func(ctx context.Context, candidate string) (bool, error) {
			return s.cards.SlugExists(ctx, candidate, card.ID)
		})
		if err != nil {
			return err
		}
		if allocated == "" {
			if fallback == "" {
				return s.cards.Update(ctx, card)
			}
			allocated = fallback
		}

		card.CustomSlug = &allocated
		err = s.cards.Update(ctx, card)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			return err
		}
		s.logger.WithField("slug", allocated).Debug("Slug lost to concurrent write, retrying")
	}
	return fmt.Errorf("could not allocate a unique slug after %d attempts: %w", maxSlugAttempts, repository.ErrSlugTaken)
}

// GetOwned retrieves a card owned by userID. A card owned by someone else is
// reported as not found.
func (s *CardService) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Card, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.UserID == nil || *card.UserID != userID {
		return nil, repository.ErrCardNotFound
	}
	return card, nil
}

// List retrieves all cards owned by a user
func (s *CardService) List(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	return s.cards.ListByUser(ctx, userID)
}

// Update applies an update to an owned card. The slug is regenerated only
// when the owner's name actually changed and the update carries no explicit
// custom slug; the compare is against the stored name fields.
func (s *CardService) Update(ctx context.Context, id, userID uuid.UUID, req *models.UpdateCardRequest) (*models.Card, error) {
	card, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	prevFirst, prevLast := card.FirstName, card.LastName

	if req.FirstName != nil {
		card.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		card.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Title != nil {
		card.Title = *req.Title
	}
	if req.Company != nil {
		card.Company = *req.Company
	}
	if req.Bio != nil {
		card.Bio = *req.Bio
	}
	if req.Email != nil {
		card.Email = *req.Email
	}
	if req.Phone != nil {
		card.Phone = *req.Phone
	}
	if req.Website != nil {
		card.Website = *req.Website
	}
	if req.Theme != nil {
		card.Theme = req.Theme
	}
	if req.SocialLinks != nil {
		card.SocialLinks = req.SocialLinks
	}

	explicitSlug := req.CustomSlug != nil && strings.TrimSpace(*req.CustomSlug) != ""
	nameChanged := card.FirstName != prevFirst || card.LastName != prevLast

	switch {
	case explicitSlug:
		candidate := strings.ToLower(strings.TrimSpace(*req.CustomSlug))
		if !slug.IsValid(candidate) {
			return nil, ErrInvalidSlug
		}
		taken, err := s.cards.SlugExists(ctx, candidate, card.ID)
		if err != nil {
			return nil, fmt.Errorf("slug lookup failed: %w", err)
		}
		if taken {
			return nil, repository.ErrSlugTaken
		}
		card.CustomSlug = &candidate

	case nameChanged:
		if err := s.updateWithAllocatedSlug(ctx, card, ""); err != nil {
			return nil, err
		}
		return card, nil
	}

	if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}

	return card, nil
}

// Delete removes an owned card along with its analytics data
func (s *CardService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("card_id", id).Info("Card deleted")
	return nil
}

// Publish makes a card publicly reachable. A card whose name yields no valid
// slug falls back to its id as the slug, keeping the published-implies-slug
// invariant intact.
func (s *CardService) Publish(ctx context.Context, id, userID uuid.UUID) (*models.Card, error) {
	card, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	card.IsPublished = true
	if card.CustomSlug == nil || *card.CustomSlug == "" {
		if err := s.updateWithAllocatedSlug(ctx, card, card.ID.String()); err != nil {
			return nil, err
		}
	} else if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCardPublished(ctx, card.ID.String(), *card.CustomSlug); err != nil {
			s.logger.WithError(err).Warn("Failed to publish card.published event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"card_id": card.ID,
		"slug":    *card.CustomSlug,
	}).Info("Card published")

	return card, nil
}

// Unpublish takes a card off its public URL. The slug is retained so
// republishing restores the same address.
func (s *CardService) Unpublish(ctx context.Context, id, userID uuid.UUID) (*models.Card, error) {
	card, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	card.IsPublished = false
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}

	s.logger.WithField("card_id", card.ID).Info("Card unpublished")
	return card, nil
}

// ResolveBySlug retrieves a published card for public viewing. Unpublished
// and nonexistent slugs are indistinguishable to callers.
func (s *CardService) ResolveBySlug(ctx context.Context, slugValue string) (*models.Card, error) {
	return s.cards.GetPublishedBySlug(ctx, slugValue)
}

// Response shapes a card for API responses, attaching the derived public URL.
func (s *CardService) Response(card *models.Card) *models.CardResponse {
	return &models.CardResponse{
		Card:         card,
		PublishedURL: card.PublishedURL(s.baseURL),
	}
}

func derefSlug(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
