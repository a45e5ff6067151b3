package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"card-service/internal/events"
	"card-service/internal/models"
)

var ErrInvalidEventType = errors.New("unsupported event type")

// RequestContext carries the request-derived fields an event is classified from.
type RequestContext struct {
	IP        string
	UserAgent string
	Referrer  string
	Metadata  datatypes.JSON
}

// eventStore is the subset of AnalyticsRepository the tracking service uses.
type eventStore interface {
	InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error
}

// viewCounter increments a card's cached view counter.
type viewCounter interface {
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

// TrackingService validates and persists analytics events. Recording is
// best-effort from the caller's perspective: public request paths log
// failures instead of propagating them.
type TrackingService struct {
	store     eventStore
	cards     viewCounter
	publisher *events.Publisher
	logger    *logrus.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(store eventStore, cards viewCounter, publisher *events.Publisher, logger *logrus.Logger) *TrackingService {
	return &TrackingService{
		store:     store,
		cards:     cards,
		publisher: publisher,
		logger:    logger,
	}
}

// Record validates and inserts one immutable event row. View events also
// bump the card's cached counter; the event table stays authoritative.
func (s *TrackingService) Record(ctx context.Context, cardID uuid.UUID, eventType models.EventType, reqCtx RequestContext) error {
	if !models.IsValidEventType(eventType) {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, eventType)
	}

	event := &models.AnalyticsEvent{
		CardID:     cardID,
		EventType:  eventType,
		VisitorID:  VisitorID(reqCtx.IP, reqCtx.UserAgent),
		DeviceType: ClassifyDevice(reqCtx.UserAgent),
		Browser:    ClassifyBrowser(reqCtx.UserAgent),
		OS:         ClassifyOS(reqCtx.UserAgent),
		Referrer:   reqCtx.Referrer,
		Metadata:   reqCtx.Metadata,
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if eventType == models.EventView {
		if err := s.cards.IncrementViews(ctx, cardID); err != nil {
			s.logger.WithError(err).WithField("card_id", cardID).Warn("Failed to increment view counter")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEventTracked(ctx, cardID.String(), string(eventType)); err != nil {
			s.logger.WithError(err).Debug("Failed to publish tracked event")
		}
	}

	return nil
}

// RecordAsync records an event on a detached context, logging any failure.
// Used on public card-serving paths where tracking must never block or fail
// the primary request.
func (s *TrackingService) RecordAsync(cardID uuid.UUID, eventType models.EventType, reqCtx RequestContext) {
	go func() {
		if err := s.Record(context.Background(), cardID, eventType, reqCtx); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"card_id":    cardID,
				"event_type": eventType,
			}).Warn("Failed to record analytics event")
		}
	}()
}

// VisitorID derives an approximate visitor identifier from the ip and
// user-agent pair. Deterministic, not authentication-grade.
func VisitorID(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}

// ClassifyDevice maps a user-agent to mobile, tablet or desktop.
// Tablets are checked first: Android tablets carry "android" without "mobile".
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone"):
		return "mobile"
	case strings.Contains(ua, "android"):
		return "tablet"
	default:
		return "desktop"
	}
}

// ClassifyBrowser maps a user-agent to a browser family.
func ClassifyBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		return "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "safari"):
		return "safari"
	default:
		return "other"
	}
}

// ClassifyOS maps a user-agent to an operating system family.
func ClassifyOS(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}
