package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"card-service/internal/models"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrSlugTaken    = errors.New("slug already in use")
)

// CardRepository handles database operations for cards
type CardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create creates a new card. A duplicate slug surfaces as ErrSlugTaken so
// the caller can retry allocation with the next counter value.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	err := r.db.WithContext(ctx).Create(card).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}

// GetByID retrieves a card by ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCardNotFound
	}
	return &card, err
}

// GetPublishedBySlug retrieves a published card by its slug. Comparison is
// case-insensitive; slugs are stored lowercase. An unpublished card is
// reported exactly like a missing one.
func (r *CardRepository) GetPublishedBySlug(ctx context.Context, slug string) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).
		Where("custom_slug = ? AND is_published = ?", strings.ToLower(slug), true).
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCardNotFound
	}
	return &card, err
}

// ListByUser retrieves all cards owned by a user
func (r *CardRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

// SlugExists reports whether a slug is already held by any card other than
// excludeID. The compare always lowercases; this is the single authoritative
// pre-check, with the unique index on custom_slug as the write-time backstop.
func (r *CardRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("custom_slug = ?", strings.ToLower(slug))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Update saves a card. A duplicate slug surfaces as ErrSlugTaken.
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	err := r.db.WithContext(ctx).Save(card).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}

// Delete removes a card together with its analytics events and summaries.
func (r *CardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", id).Delete(&models.AnalyticsEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", id).Delete(&models.DailySummary{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Card{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCardNotFound
		}
		return nil
	})
}

// IncrementViews bumps the cached view counter. Best effort; the event table
// is authoritative.
func (r *CardRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}
