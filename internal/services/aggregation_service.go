package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"card-service/internal/models"
)

// topNLimit is how many entries each breakdown blob keeps per summary row.
const topNLimit = 5

// summaryStore is the subset of AnalyticsRepository the aggregator uses.
type summaryStore interface {
	EventsBetween(ctx context.Context, from, to time.Time) ([]models.AnalyticsEvent, error)
	UpsertSummary(ctx context.Context, summary *models.DailySummary) error
}

// AggregationResult reports the outcome of one day's rollup. Per-card
// failures do not abort the run; idempotent upserts make retries safe.
type AggregationResult struct {
	Date           time.Time   `json:"date"`
	EventCount     int         `json:"eventCount"`
	CardsProcessed int         `json:"cardsProcessed"`
	CardsFailed    int         `json:"cardsFailed"`
	FailedCardIDs  []uuid.UUID `json:"failedCardIds,omitempty"`
}

// AggregationService rolls raw events up into per-card daily summaries
type AggregationService struct {
	store  summaryStore
	logger *logrus.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(store summaryStore, logger *logrus.Logger) *AggregationService {
	return &AggregationService{
		store:  store,
		logger: logger,
	}
}

// AggregateDay scans the UTC calendar day [date 00:00, date+1 00:00), groups
// events by card and upserts one summary per (card, date). Counters are
// overwritten on conflict, so running twice for the same day yields the same
// stored result. Days with no events for a card write no row; readers treat
// a missing row as zero.
func (s *AggregationService) AggregateDay(ctx context.Context, date time.Time) (*AggregationResult, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := s.store.EventsBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", dayStart.Format("2006-01-02"), err)
	}

	result := &AggregationResult{Date: dayStart, EventCount: len(events)}

	for cardID, stats := range SummarizeEvents(events) {
		summary := stats.ToSummary(cardID, dayStart)
		if err := s.store.UpsertSummary(ctx, summary); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"card_id": cardID,
				"date":    dayStart.Format("2006-01-02"),
			}).Error("Failed to upsert daily summary")
			result.CardsFailed++
			result.FailedCardIDs = append(result.FailedCardIDs, cardID)
			continue
		}
		result.CardsProcessed++
	}

	s.logger.WithFields(logrus.Fields{
		"date":            dayStart.Format("2006-01-02"),
		"events":          result.EventCount,
		"cards_processed": result.CardsProcessed,
		"cards_failed":    result.CardsFailed,
	}).Info("Aggregated daily summaries")

	return result, nil
}

// AggregateRange backfills summaries for every day in [from, to] inclusive.
func (s *AggregationService) AggregateRange(ctx context.Context, from, to time.Time) ([]*AggregationResult, error) {
	var results []*AggregationResult
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		result, err := s.AggregateDay(ctx, day)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CardStats accumulates one card's counters over a set of events. The same
// grouping serves persisted daily rollups and the dashboard's live
// computation of today's partial numbers.
type CardStats struct {
	TotalViews   int64
	ContactSaves int64
	SocialClicks int64
	QRScans      int64
	Shares       int64

	visitors  map[string]struct{}
	Countries map[string]int64
	Devices   map[string]int64
	Referrers map[string]int64
}

func newCardStats() *CardStats {
	return &CardStats{
		visitors:  make(map[string]struct{}),
		Countries: make(map[string]int64),
		Devices:   make(map[string]int64),
		Referrers: make(map[string]int64),
	}
}

// UniqueViews is the number of distinct visitor ids among view events.
func (cs *CardStats) UniqueViews() int64 {
	return int64(len(cs.visitors))
}

// Add folds one event into the stats.
func (cs *CardStats) Add(event *models.AnalyticsEvent) {
	switch event.EventType {
	case models.EventView:
		cs.TotalViews++
		if event.VisitorID != "" {
			cs.visitors[event.VisitorID] = struct{}{}
		}
	case models.EventContactSave:
		cs.ContactSaves++
	case models.EventSocialClick:
		cs.SocialClicks++
	case models.EventQRScan:
		cs.QRScans++
	case models.EventShare:
		cs.Shares++
	}

	if event.Country != "" {
		cs.Countries[event.Country]++
	}
	if event.DeviceType != "" {
		cs.Devices[event.DeviceType]++
	}
	if event.Referrer != "" {
		cs.Referrers[event.Referrer]++
	}
}

// ToSummary materializes the stats as a summary row for one (card, date).
func (cs *CardStats) ToSummary(cardID uuid.UUID, date time.Time) *models.DailySummary {
	return &models.DailySummary{
		CardID:       cardID,
		Date:         date,
		TotalViews:   cs.TotalViews,
		UniqueViews:  cs.UniqueViews(),
		ContactSaves: cs.ContactSaves,
		SocialClicks: cs.SocialClicks,
		QRScans:      cs.QRScans,
		Shares:       cs.Shares,
		TopCountries: marshalTopN(cs.Countries, topNLimit),
		TopDevices:   marshalTopN(cs.Devices, topNLimit),
		TopReferrers: marshalTopN(cs.Referrers, topNLimit),
	}
}

// SummarizeEvents groups events by card and computes each card's counters.
// Pure and order-independent: aggregation is a set operation over the window.
func SummarizeEvents(events []models.AnalyticsEvent) map[uuid.UUID]*CardStats {
	groups := make(map[uuid.UUID]*CardStats)
	for i := range events {
		stats, ok := groups[events[i].CardID]
		if !ok {
			stats = newCardStats()
			groups[events[i].CardID] = stats
		}
		stats.Add(&events[i])
	}
	return groups
}

// marshalTopN renders the n largest counters as a JSON blob, sorted by count
// descending with alphabetical tie-break for determinism.
func marshalTopN(counts map[string]int64, n int) datatypes.JSON {
	if len(counts) == 0 {
		return nil
	}

	items := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		items = append(items, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > n {
		items = items[:n]
	}

	blob, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return blob
}
