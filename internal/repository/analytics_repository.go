package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"card-service/internal/models"
)

// AnalyticsRepository handles database operations for raw events and
// daily summaries
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// InsertEvent appends one immutable event row
func (r *AnalyticsRepository) InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// EventsBetween retrieves all events with created_at in [from, to)
func (r *AnalyticsRepository) EventsBetween(ctx context.Context, from, to time.Time) ([]models.AnalyticsEvent, error) {
	var events []models.AnalyticsEvent
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Find(&events).Error
	return events, err
}

// EventsForCardsBetween retrieves events for the given cards with
// created_at in [from, to)
func (r *AnalyticsRepository) EventsForCardsBetween(ctx context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.AnalyticsEvent, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	var events []models.AnalyticsEvent
	err := r.db.WithContext(ctx).
		Where("card_id IN ? AND created_at >= ? AND created_at < ?", cardIDs, from, to).
		Find(&events).Error
	return events, err
}

// RecentEvents retrieves the most recent events for a card, newest first
func (r *AnalyticsRepository) RecentEvents(ctx context.Context, cardID uuid.UUID, limit int) ([]models.AnalyticsEvent, error) {
	var events []models.AnalyticsEvent
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// UpsertSummary writes one summary row per (card, date). Counters and
// breakdowns are overwritten, never added to, so re-aggregating a day is
// idempotent.
func (r *AnalyticsRepository) UpsertSummary(ctx context.Context, summary *models.DailySummary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "card_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_views", "unique_views", "contact_saves", "social_clicks",
				"qr_scans", "shares", "top_countries", "top_devices",
				"top_referrers", "updated_at",
			}),
		}).
		Create(summary).Error
}

// SummariesForCards retrieves summaries for the given cards with date in
// [from, to], ordered by date
func (r *AnalyticsRepository) SummariesForCards(ctx context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.DailySummary, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	var summaries []models.DailySummary
	err := r.db.WithContext(ctx).
		Where("card_id IN ? AND date >= ? AND date <= ?", cardIDs, from, to).
		Order("date ASC").
		Find(&summaries).Error
	return summaries, err
}

// DeleteEventsBefore purges events older than the cutoff, returning the
// number of rows removed
func (r *AnalyticsRepository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AnalyticsEvent{})
	return result.RowsAffected, result.Error
}
