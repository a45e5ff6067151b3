package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventType classifies a single visitor interaction with a card.
type EventType string

const (
	EventView        EventType = "view"
	EventContactSave EventType = "contact_save"
	EventSocialClick EventType = "social_click"
	EventShare       EventType = "share"
	EventQRScan      EventType = "qr_scan"
)

// ValidEventTypes lists every accepted event type.
var ValidEventTypes = []EventType{
	EventView,
	EventContactSave,
	EventSocialClick,
	EventShare,
	EventQRScan,
}

// IsValidEventType reports whether t is a known event type.
func IsValidEventType(t EventType) bool {
	for _, v := range ValidEventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// AnalyticsEvent is one immutable visitor interaction. Events are append-only;
// they are never updated, only purged by retention cleanup.
type AnalyticsEvent struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CardID uuid.UUID `json:"cardId" gorm:"type:uuid;not null;index:idx_events_card_time,priority:1"`

	EventType EventType `json:"eventType" gorm:"size:30;not null;index"`
	VisitorID string    `json:"visitorId" gorm:"size:32;index"` // derived from ip+user-agent, approximate

	DeviceType string `json:"deviceType" gorm:"size:20"`
	Browser    string `json:"browser" gorm:"size:50"`
	OS         string `json:"os" gorm:"size:50"`

	Country  string `json:"country" gorm:"size:100"`
	City     string `json:"city" gorm:"size:100"`
	Referrer string `json:"referrer" gorm:"size:500"`

	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_events_card_time,priority:2"`
}

// DailySummary is the per-card, per-UTC-day rollup of analytics counters.
// One row per (card, date); the aggregator overwrites counters on re-run so
// re-aggregation never double-counts.
type DailySummary struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CardID uuid.UUID `json:"cardId" gorm:"type:uuid;not null;uniqueIndex:idx_summary_card_date,priority:1"`
	Date   time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:idx_summary_card_date,priority:2"`

	TotalViews   int64 `json:"totalViews" gorm:"default:0"`
	UniqueViews  int64 `json:"uniqueViews" gorm:"default:0"`
	ContactSaves int64 `json:"contactSaves" gorm:"default:0"`
	SocialClicks int64 `json:"socialClicks" gorm:"default:0"`
	QRScans      int64 `json:"qrScans" gorm:"column:qr_scans;default:0"`
	Shares       int64 `json:"shares" gorm:"default:0"`

	TopCountries datatypes.JSON `json:"topCountries" gorm:"type:jsonb"`
	TopDevices   datatypes.JSON `json:"topDevices" gorm:"type:jsonb"`
	TopReferrers datatypes.JSON `json:"topReferrers" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NameCount is a labelled counter used in top-N breakdown blobs.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
