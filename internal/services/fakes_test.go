package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-service/internal/models"
	"card-service/internal/repository"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeCardStore is an in-memory cardStore for service tests.
type fakeCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*models.Card

	// extraSlugs are treated as taken without belonging to a stored card.
	extraSlugs map[string]bool

	// createConflicts and updateConflicts fail that many Create/Update calls
	// with ErrSlugTaken to simulate losing a slug race at the unique index.
	createConflicts int
	updateConflicts int

	viewIncrements map[uuid.UUID]int
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{
		cards:          make(map[uuid.UUID]*models.Card),
		extraSlugs:     make(map[string]bool),
		viewIncrements: make(map[uuid.UUID]int),
	}
}

func (f *fakeCardStore) Create(_ context.Context, card *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createConflicts > 0 {
		f.createConflicts--
		return repository.ErrSlugTaken
	}
	if card.CustomSlug != nil && f.slugTakenLocked(*card.CustomSlug, card.ID) {
		return repository.ErrSlugTaken
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	cp := *card
	f.cards[card.ID] = &cp
	return nil
}

func (f *fakeCardStore) GetByID(_ context.Context, id uuid.UUID) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	card, ok := f.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (f *fakeCardStore) GetPublishedBySlug(_ context.Context, slug string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, card := range f.cards {
		if card.CustomSlug != nil && *card.CustomSlug == strings.ToLower(slug) && card.IsPublished {
			cp := *card
			return &cp, nil
		}
	}
	return nil, repository.ErrCardNotFound
}

func (f *fakeCardStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cards []models.Card
	for _, card := range f.cards {
		if card.UserID != nil && *card.UserID == userID {
			cards = append(cards, *card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID.String() < cards[j].ID.String() })
	return cards, nil
}

func (f *fakeCardStore) SlugExists(_ context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slugTakenLocked(slug, excludeID), nil
}

func (f *fakeCardStore) slugTakenLocked(slug string, excludeID uuid.UUID) bool {
	slug = strings.ToLower(slug)
	if f.extraSlugs[slug] {
		return true
	}
	for id, card := range f.cards {
		if id == excludeID {
			continue
		}
		if card.CustomSlug != nil && *card.CustomSlug == slug {
			return true
		}
	}
	return false
}

func (f *fakeCardStore) Update(_ context.Context, card *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cards[card.ID]; !ok {
		return repository.ErrCardNotFound
	}
	if f.updateConflicts > 0 {
		f.updateConflicts--
		return repository.ErrSlugTaken
	}
	if card.CustomSlug != nil && f.slugTakenLocked(*card.CustomSlug, card.ID) {
		return repository.ErrSlugTaken
	}
	cp := *card
	f.cards[card.ID] = &cp
	return nil
}

func (f *fakeCardStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cards[id]; !ok {
		return repository.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardStore) IncrementViews(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewIncrements[id]++
	return nil
}

// fakeAnalyticsStore is an in-memory analytics store covering the event,
// summary and dashboard interfaces.
type fakeAnalyticsStore struct {
	mu        sync.Mutex
	events    []models.AnalyticsEvent
	summaries map[string]*models.DailySummary

	insertErr error
	// upsertFailFor makes UpsertSummary fail for specific cards.
	upsertFailFor map[uuid.UUID]error
}

func newFakeAnalyticsStore() *fakeAnalyticsStore {
	return &fakeAnalyticsStore{
		summaries:     make(map[string]*models.DailySummary),
		upsertFailFor: make(map[uuid.UUID]error),
	}
}

func summaryKey(cardID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s|%s", cardID, date.Format("2006-01-02"))
}

func (f *fakeAnalyticsStore) InsertEvent(_ context.Context, event *models.AnalyticsEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return f.insertErr
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeAnalyticsStore) EventsBetween(_ context.Context, from, to time.Time) ([]models.AnalyticsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AnalyticsEvent
	for _, e := range f.events {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAnalyticsStore) EventsForCardsBetween(_ context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.AnalyticsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make(map[uuid.UUID]bool, len(cardIDs))
	for _, id := range cardIDs {
		ids[id] = true
	}
	var out []models.AnalyticsEvent
	for _, e := range f.events {
		if ids[e.CardID] && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAnalyticsStore) RecentEvents(_ context.Context, cardID uuid.UUID, limit int) ([]models.AnalyticsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AnalyticsEvent
	for _, e := range f.events {
		if e.CardID == cardID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAnalyticsStore) UpsertSummary(_ context.Context, summary *models.DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.upsertFailFor[summary.CardID]; err != nil {
		return err
	}
	cp := *summary
	f.summaries[summaryKey(summary.CardID, summary.Date)] = &cp
	return nil
}

func (f *fakeAnalyticsStore) SummariesForCards(_ context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make(map[uuid.UUID]bool, len(cardIDs))
	for _, id := range cardIDs {
		ids[id] = true
	}
	var out []models.DailySummary
	for _, s := range f.summaries {
		if ids[s.CardID] && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeAnalyticsStore) summaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}
