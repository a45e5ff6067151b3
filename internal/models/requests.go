package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the payload for credential verification.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued access token and the account it belongs to.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

// CreateCardRequest is the payload for card creation.
type CreateCardRequest struct {
	FirstName   string         `json:"firstName" binding:"required"`
	LastName    string         `json:"lastName"`
	Title       string         `json:"title"`
	Company     string         `json:"company"`
	Bio         string         `json:"bio"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Website     string         `json:"website"`
	CustomSlug  string         `json:"customSlug"`
	Theme       datatypes.JSON `json:"theme"`
	SocialLinks datatypes.JSON `json:"socialLinks"`
}

// UpdateCardRequest is the payload for card updates. Pointer fields
// distinguish "not sent" from "set to empty".
type UpdateCardRequest struct {
	FirstName   *string        `json:"firstName"`
	LastName    *string        `json:"lastName"`
	Title       *string        `json:"title"`
	Company     *string        `json:"company"`
	Bio         *string        `json:"bio"`
	Email       *string        `json:"email"`
	Phone       *string        `json:"phone"`
	Website     *string        `json:"website"`
	CustomSlug  *string        `json:"customSlug"`
	Theme       datatypes.JSON `json:"theme"`
	SocialLinks datatypes.JSON `json:"socialLinks"`
}

// CardResponse wraps a card with its derived public URL.
type CardResponse struct {
	*Card
	PublishedURL string `json:"publishedUrl"`
}

// TrackEventRequest is the public event-tracking payload.
type TrackEventRequest struct {
	CardID    uuid.UUID      `json:"cardId" binding:"required"`
	EventType EventType      `json:"eventType" binding:"required"`
	Metadata  datatypes.JSON `json:"metadata"`
}

// AggregateRequest triggers a rollup for one day or a backfill range.
// Dates are "2006-01-02" and interpreted as UTC calendar days.
type AggregateRequest struct {
	Date string `json:"date"`
	From string `json:"from"`
	To   string `json:"to"`
}
