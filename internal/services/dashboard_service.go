package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-service/internal/cache"
	"card-service/internal/models"
	"card-service/internal/repository"
)

var ErrInvalidPeriod = errors.New("period must be one of 1d, 7d, 30d, 90d, 365d")

// periodDays maps the accepted dashboard periods to day counts.
var periodDays = map[string]int{
	"1d":   1,
	"7d":   7,
	"30d":  30,
	"90d":  90,
	"365d": 365,
}

// ParsePeriod resolves a period token such as "7d" to its day count.
func ParsePeriod(period string) (int, error) {
	if period == "" {
		return 7, nil
	}
	days, ok := periodDays[period]
	if !ok {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidPeriod, period)
	}
	return days, nil
}

// Scope selects the cards a dashboard read covers: a single owned card, or
// every card belonging to the user.
type Scope struct {
	UserID uuid.UUID
	CardID *uuid.UUID
}

const (
	dashboardCacheTTL = 60 * time.Second
	recentEventsLimit = 10
)

// dashboardStore is the subset of AnalyticsRepository the composer reads from.
type dashboardStore interface {
	EventsForCardsBetween(ctx context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.AnalyticsEvent, error)
	SummariesForCards(ctx context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.DailySummary, error)
	RecentEvents(ctx context.Context, cardID uuid.UUID, limit int) ([]models.AnalyticsEvent, error)
}

// dashboardCardStore resolves the cards in scope.
type dashboardCardStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error)
}

// DashboardService composes overview metrics from persisted summaries plus
// today's raw events.
type DashboardService struct {
	store  dashboardStore
	cards  dashboardCardStore
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store dashboardStore, cards dashboardCardStore, c *cache.Cache, logger *logrus.Logger) *DashboardService {
	return &DashboardService{
		store:  store,
		cards:  cards,
		cache:  c,
		logger: logger,
	}
}

// Overview composes metrics for the last `days` days (today inclusive).
// Persisted summaries cover prior days; today's partial numbers are computed
// live from raw events with the same grouping as the aggregator. Repeated
// calls against unchanged data return identical results.
func (s *DashboardService) Overview(ctx context.Context, scope Scope, days int) (*models.OverviewMetrics, error) {
	cardIDs, err := s.resolveCards(ctx, scope)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(scope, days)
	var cached models.OverviewMetrics
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	periodStart := today.AddDate(0, 0, -(days - 1))

	metrics := &models.OverviewMetrics{
		DateRange: models.DateRange{From: periodStart, To: today.AddDate(0, 0, 1)},
	}

	viewsByDay := make(map[time.Time]int64)
	devices := make(map[string]int64)
	referrers := make(map[string]int64)
	countries := make(map[string]int64)

	// Prior days come from persisted summaries.
	summaries, err := s.store.SummariesForCards(ctx, cardIDs, periodStart, today.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	for i := range summaries {
		sm := &summaries[i]
		metrics.TotalViews += sm.TotalViews
		metrics.UniqueViews += sm.UniqueViews
		metrics.ContactSaves += sm.ContactSaves
		metrics.SocialClicks += sm.SocialClicks
		metrics.QRScans += sm.QRScans
		metrics.Shares += sm.Shares

		day := sm.Date.UTC().Truncate(24 * time.Hour)
		viewsByDay[day] += sm.TotalViews

		mergeBreakdown(devices, sm.TopDevices)
		mergeBreakdown(referrers, sm.TopReferrers)
		mergeBreakdown(countries, sm.TopCountries)
	}

	// Today's summary may not exist yet; compute partial numbers from raw
	// events using the aggregator's grouping, without persisting.
	todayEvents, err := s.store.EventsForCardsBetween(ctx, cardIDs, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load today's events: %w", err)
	}
	for _, stats := range SummarizeEvents(todayEvents) {
		metrics.TotalViews += stats.TotalViews
		metrics.UniqueViews += stats.UniqueViews()
		metrics.ContactSaves += stats.ContactSaves
		metrics.SocialClicks += stats.SocialClicks
		metrics.QRScans += stats.QRScans
		metrics.Shares += stats.Shares

		viewsByDay[today] += stats.TotalViews

		mergeCounts(devices, stats.Devices)
		mergeCounts(referrers, stats.Referrers)
		mergeCounts(countries, stats.Countries)
	}

	metrics.ConversionRate = ConversionRate(metrics.ContactSaves, metrics.TotalViews)
	metrics.ViewsByDay = fillSeries(viewsByDay, periodStart, today)
	metrics.DeviceBreakdown = ComposeBreakdown(devices)
	metrics.SourceBreakdown = ComposeBreakdown(referrers)
	metrics.CountryBreakdown = ComposeBreakdown(countries)

	// Trend deltas compare against the immediately preceding period of
	// equal length, which is fully aggregated by the time it is read.
	prevStart := periodStart.AddDate(0, 0, -days)
	prevSummaries, err := s.store.SummariesForCards(ctx, cardIDs, prevStart, periodStart.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to load previous period summaries: %w", err)
	}
	var prevViews, prevContacts int64
	for i := range prevSummaries {
		prevViews += prevSummaries[i].TotalViews
		prevContacts += prevSummaries[i].ContactSaves
	}
	metrics.ViewsTrend = PercentChange(metrics.TotalViews, prevViews)
	metrics.ContactsTrend = PercentChange(metrics.ContactSaves, prevContacts)

	if scope.CardID != nil {
		recent, err := s.store.RecentEvents(ctx, *scope.CardID, recentEventsLimit)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load recent events")
		} else {
			metrics.RecentEvents = recent
		}
	}

	s.cache.Set(ctx, cacheKey, metrics, dashboardCacheTTL)

	return metrics, nil
}

// resolveCards expands the scope to concrete card ids, enforcing ownership.
func (s *DashboardService) resolveCards(ctx context.Context, scope Scope) ([]uuid.UUID, error) {
	if scope.CardID != nil {
		card, err := s.cards.GetByID(ctx, *scope.CardID)
		if err != nil {
			return nil, err
		}
		if card.UserID == nil || *card.UserID != scope.UserID {
			return nil, repository.ErrCardNotFound
		}
		return []uuid.UUID{card.ID}, nil
	}

	cards, err := s.cards.ListByUser(ctx, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	ids := make([]uuid.UUID, len(cards))
	for i := range cards {
		ids[i] = cards[i].ID
	}
	return ids, nil
}

func (s *DashboardService) cacheKey(scope Scope, days int) string {
	if scope.CardID != nil {
		return fmt.Sprintf("dashboard:card:%s:%d", scope.CardID, days)
	}
	return fmt.Sprintf("dashboard:user:%s:%d", scope.UserID, days)
}

// ConversionRate is contact saves per 100 views, rounded to two decimals.
// Zero views yields 0.00, never a division error.
func ConversionRate(contacts, views int64) float64 {
	if views == 0 {
		return 0
	}
	return math.Round(float64(contacts)/float64(views)*100*100) / 100
}

// PercentChange is the relative change from previous to current, as a
// percentage rounded to two decimals. An empty previous period yields 0.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((float64(current)-float64(previous))/float64(previous)*100*100) / 100
}

// ComposeBreakdown renders counters as a percentage distribution, sorted by
// share descending with alphabetical tie-break for determinism.
func ComposeBreakdown(counts map[string]int64) []models.BreakdownItem {
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return nil
	}

	items := make([]models.BreakdownItem, 0, len(counts))
	for name, count := range counts {
		items = append(items, models.BreakdownItem{
			Name:       name,
			Count:      count,
			Percentage: math.Round(float64(count)/float64(total)*100*100) / 100,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	return items
}

// fillSeries produces a zero-filled per-day series over [from, to].
func fillSeries(values map[time.Time]int64, from, to time.Time) []models.TimeSeriesData {
	var series []models.TimeSeriesData
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		series = append(series, models.TimeSeriesData{Date: day, Value: values[day]})
	}
	return series
}

func mergeBreakdown(into map[string]int64, blob []byte) {
	if len(blob) == 0 {
		return
	}
	var items []models.NameCount
	if err := json.Unmarshal(blob, &items); err != nil {
		return
	}
	for _, item := range items {
		into[item.Name] += item.Count
	}
}

func mergeCounts(into map[string]int64, from map[string]int64) {
	for name, count := range from {
		into[name] += count
	}
}
