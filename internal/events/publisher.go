// Package events publishes card lifecycle and analytics events to NATS.
// Publishing is optional: with NATS_URL unset the service runs without it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	SubjectCardPublished = "cards.published"
	SubjectEventTracked  = "analytics.event.tracked"
)

// Publisher wraps a NATS connection for card-service events
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// envelope is the wire shape of every published event
type envelope struct {
	Subject   string                 `json:"subject"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewPublisher connects to NATS with reconnect-friendly settings. Returns
// (nil, nil) when NATS_URL is unset, which disables publishing.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		logger.Warn("NATS_URL not set, event publishing disabled")
		return nil, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("card-service"),
		nats.Timeout(10*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.WithField("url", natsURL).Info("NATS events publisher initialized")

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "events.publisher"),
	}, nil
}

// PublishCardPublished announces that a card went live at its slug
func (p *Publisher) PublishCardPublished(ctx context.Context, cardID, slug string) error {
	return p.publish(SubjectCardPublished, map[string]interface{}{
		"card_id": cardID,
		"slug":    slug,
	})
}

// PublishEventTracked announces a recorded analytics event
func (p *Publisher) PublishEventTracked(ctx context.Context, cardID, eventType string) error {
	return p.publish(SubjectEventTracked, map[string]interface{}{
		"card_id":    cardID,
		"event_type": eventType,
	})
}

func (p *Publisher) publish(subject string, data map[string]interface{}) error {
	payload, err := json.Marshal(envelope{
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.logger.WithError(err).Warn("Failed to drain NATS connection")
		}
	}
}
