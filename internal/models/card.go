package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Card is a digital business card. A published card is reachable at its
// slug URL; the unique index on custom_slug is the final guard against two
// cards acquiring the same slug concurrently.
type Card struct {
	ID     uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID *uuid.UUID `json:"userId" gorm:"type:uuid;index"` // nil for anonymous demo cards

	FirstName string `json:"firstName" gorm:"size:100;not null"`
	LastName  string `json:"lastName" gorm:"size:100"`
	Title     string `json:"title" gorm:"size:255"`
	Company   string `json:"company" gorm:"size:255"`
	Bio       string `json:"bio" gorm:"type:text"`
	Email     string `json:"email" gorm:"size:255"`
	Phone     string `json:"phone" gorm:"size:50"`
	Website   string `json:"website" gorm:"size:500"`

	CustomSlug  *string `json:"customSlug" gorm:"uniqueIndex;size:255"` // always stored lowercase
	IsPublished bool    `json:"isPublished" gorm:"default:false;index"`
	ViewsCount  int64   `json:"viewsCount" gorm:"default:0"` // cached; events are authoritative

	Theme       datatypes.JSON `json:"theme" gorm:"type:jsonb"`
	SocialLinks datatypes.JSON `json:"socialLinks" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// PublishedURL derives the public URL for the card, or "" when the card has
// no slug yet.
func (c *Card) PublishedURL(baseURL string) string {
	if c.CustomSlug == nil || *c.CustomSlug == "" {
		return ""
	}
	return baseURL + "/p/" + *c.CustomSlug
}
