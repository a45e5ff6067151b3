package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-service/internal/models"
	"card-service/internal/repository"
	"card-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memCardStore is an in-memory card store for handler tests.
type memCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*models.Card
}

func newMemCardStore() *memCardStore {
	return &memCardStore{cards: make(map[uuid.UUID]*models.Card)}
}

func (m *memCardStore) Create(_ context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card.CustomSlug != nil && m.slugTakenLocked(*card.CustomSlug, card.ID) {
		return repository.ErrSlugTaken
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	cp := *card
	m.cards[card.ID] = &cp
	return nil
}

func (m *memCardStore) GetByID(_ context.Context, id uuid.UUID) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (m *memCardStore) GetPublishedBySlug(_ context.Context, slug string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range m.cards {
		if card.CustomSlug != nil && *card.CustomSlug == strings.ToLower(slug) && card.IsPublished {
			cp := *card
			return &cp, nil
		}
	}
	return nil, repository.ErrCardNotFound
}

func (m *memCardStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Card
	for _, card := range m.cards {
		if card.UserID != nil && *card.UserID == userID {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (m *memCardStore) SlugExists(_ context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slugTakenLocked(slug, excludeID), nil
}

func (m *memCardStore) slugTakenLocked(slug string, excludeID uuid.UUID) bool {
	slug = strings.ToLower(slug)
	for id, card := range m.cards {
		if id != excludeID && card.CustomSlug != nil && *card.CustomSlug == slug {
			return true
		}
	}
	return false
}

func (m *memCardStore) Update(_ context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return repository.ErrCardNotFound
	}
	cp := *card
	m.cards[card.ID] = &cp
	return nil
}

func (m *memCardStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return repository.ErrCardNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *memCardStore) IncrementViews(_ context.Context, id uuid.UUID) error {
	return nil
}

// memAnalyticsStore is an in-memory analytics store for handler tests.
type memAnalyticsStore struct {
	mu     sync.Mutex
	events []models.AnalyticsEvent
}

func (m *memAnalyticsStore) InsertEvent(_ context.Context, event *models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()
	m.events = append(m.events, *event)
	return nil
}

func (m *memAnalyticsStore) EventsForCardsBetween(_ context.Context, cardIDs []uuid.UUID, from, to time.Time) ([]models.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(cardIDs))
	for _, id := range cardIDs {
		ids[id] = true
	}
	var out []models.AnalyticsEvent
	for _, e := range m.events {
		if ids[e.CardID] && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAnalyticsStore) SummariesForCards(_ context.Context, _ []uuid.UUID, _, _ time.Time) ([]models.DailySummary, error) {
	return nil, nil
}

func (m *memAnalyticsStore) RecentEvents(_ context.Context, cardID uuid.UUID, limit int) ([]models.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AnalyticsEvent
	for _, e := range m.events {
		if e.CardID == cardID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAnalyticsStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type testEnv struct {
	router    *gin.Engine
	cards     *memCardStore
	analytics *memAnalyticsStore
	userID    uuid.UUID
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cards := newMemCardStore()
	analytics := &memAnalyticsStore{}

	cardService := services.NewCardService(cards, nil, "https://cards.example.com", logger)
	trackingService := services.NewTrackingService(analytics, cards, nil, logger)
	dashboardService := services.NewDashboardService(analytics, cards, nil, logger)

	cardHandlers := NewCardHandlers(cardService, logger)
	publicHandlers := NewPublicHandlers(cardService, trackingService, logger)
	analyticsHandlers := NewAnalyticsHandlers(dashboardService, nil, logger)

	userID := uuid.New()

	router := gin.New()
	router.GET("/p/:slug", publicHandlers.GetCardBySlug)

	v1 := router.Group("/api/v1")
	v1.POST("/track", publicHandlers.TrackEvent)

	authed := v1.Group("")
	authed.Use(func(c *gin.Context) {
		// Stands in for the JWT middleware.
		if c.GetHeader("Authorization") != "" {
			c.Set("user_id", userID.String())
		}
		c.Next()
	})
	authed.POST("/cards", cardHandlers.Create)
	authed.GET("/cards", cardHandlers.List)
	authed.GET("/cards/:id", cardHandlers.Get)
	authed.POST("/cards/:id/publish", cardHandlers.Publish)
	authed.GET("/analytics/overview", analyticsHandlers.GetOverview)

	return &testEnv{router: router, cards: cards, analytics: analytics, userID: userID}
}

func (env *testEnv) do(method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) seedPublishedCard(t *testing.T, slug string) *models.Card {
	t.Helper()
	card := &models.Card{
		UserID:      &env.userID,
		FirstName:   "Elena",
		LastName:    "Castillo",
		CustomSlug:  &slug,
		IsPublished: true,
	}
	require.NoError(t, env.cards.Create(context.Background(), card))
	return card
}

func TestGetCardBySlug(t *testing.T) {
	env := setupTestRouter(t)
	env.seedPublishedCard(t, "elena-castillo")

	w := env.do(http.MethodGet, "/p/elena-castillo", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Elena", resp.FirstName)
	assert.Equal(t, "https://cards.example.com/p/elena-castillo", resp.PublishedURL)
}

func TestGetCardBySlugNotFound(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/p/no-such-card", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCardBySlugUnpublishedLooksMissing(t *testing.T) {
	env := setupTestRouter(t)
	slug := "elena-castillo"
	card := &models.Card{UserID: &env.userID, FirstName: "Elena", CustomSlug: &slug}
	require.NoError(t, env.cards.Create(context.Background(), card))

	w := env.do(http.MethodGet, "/p/elena-castillo", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackEvent(t *testing.T) {
	env := setupTestRouter(t)
	card := env.seedPublishedCard(t, "elena-castillo")

	w := env.do(http.MethodPost, "/api/v1/track", models.TrackEventRequest{
		CardID:    card.ID,
		EventType: models.EventQRScan,
	}, false)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, env.analytics.eventCount())
}

func TestTrackEventRejectsUnknownType(t *testing.T) {
	env := setupTestRouter(t)
	card := env.seedPublishedCard(t, "elena-castillo")

	w := env.do(http.MethodPost, "/api/v1/track", map[string]interface{}{
		"cardId":    card.ID.String(),
		"eventType": "page_print",
	}, false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.analytics.eventCount())
}

func TestTrackEventRejectsMalformedBody(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/track", map[string]interface{}{
		"eventType": "view",
	}, false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCard(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/cards", models.CreateCardRequest{
		FirstName: "Elena",
		LastName:  "Castillo",
	}, true)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.CardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.CustomSlug)
	assert.Equal(t, "elena-castillo", *resp.CustomSlug)
}

func TestCreateCardRequiresAuth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/cards", models.CreateCardRequest{FirstName: "Elena"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateCardRequiresFirstName(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/cards", map[string]interface{}{"lastName": "Castillo"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCardExplicitSlugConflicts(t *testing.T) {
	env := setupTestRouter(t)
	env.seedPublishedCard(t, "elena-castillo")

	w := env.do(http.MethodPost, "/api/v1/cards", models.CreateCardRequest{
		FirstName:  "Other",
		CustomSlug: "elena-castillo",
	}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateCardInvalidExplicitSlug(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/cards", models.CreateCardRequest{
		FirstName:  "Elena",
		CustomSlug: "!!!",
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCardHidesForeignCards(t *testing.T) {
	env := setupTestRouter(t)
	otherUser := uuid.New()
	slug := "someone-else"
	card := &models.Card{UserID: &otherUser, FirstName: "Someone", CustomSlug: &slug}
	require.NoError(t, env.cards.Create(context.Background(), card))

	w := env.do(http.MethodGet, fmt.Sprintf("/api/v1/cards/%s", card.ID), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublishCard(t *testing.T) {
	env := setupTestRouter(t)
	slug := "elena-castillo"
	card := &models.Card{UserID: &env.userID, FirstName: "Elena", CustomSlug: &slug}
	require.NoError(t, env.cards.Create(context.Background(), card))

	w := env.do(http.MethodPost, fmt.Sprintf("/api/v1/cards/%s/publish", card.ID), nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsPublished)

	got := env.do(http.MethodGet, "/p/elena-castillo", nil, false)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestGetOverview(t *testing.T) {
	env := setupTestRouter(t)
	card := env.seedPublishedCard(t, "elena-castillo")

	w := env.do(http.MethodPost, "/api/v1/track", models.TrackEventRequest{
		CardID:    card.ID,
		EventType: models.EventView,
	}, false)
	require.Equal(t, http.StatusAccepted, w.Code)

	got := env.do(http.MethodGet, "/api/v1/analytics/overview?period=7d", nil, true)
	require.Equal(t, http.StatusOK, got.Code)

	var metrics models.OverviewMetrics
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &metrics))
	assert.Equal(t, int64(1), metrics.TotalViews)
	assert.Len(t, metrics.ViewsByDay, 7)
}

func TestGetOverviewRejectsUnknownPeriod(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/analytics/overview?period=14d", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
