package models

import "time"

// DateRange represents a time period for analytics
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OverviewMetrics is the composed dashboard response for a card or for all
// of an owner's cards over a period.
type OverviewMetrics struct {
	DateRange DateRange `json:"dateRange"`

	TotalViews     int64   `json:"totalViews"`
	UniqueViews    int64   `json:"uniqueViews"`
	ContactSaves   int64   `json:"contactSaves"`
	SocialClicks   int64   `json:"socialClicks"`
	QRScans        int64   `json:"qrScans"`
	Shares         int64   `json:"shares"`
	ConversionRate float64 `json:"conversionRate"` // contact saves per 100 views

	// Comparison with the immediately preceding period of equal length
	ViewsTrend    float64 `json:"viewsTrend"`    // Percentage
	ContactsTrend float64 `json:"contactsTrend"` // Percentage

	ViewsByDay []TimeSeriesData `json:"viewsByDay"`

	DeviceBreakdown  []BreakdownItem `json:"deviceBreakdown"`
	SourceBreakdown  []BreakdownItem `json:"sourceBreakdown"`
	CountryBreakdown []BreakdownItem `json:"countryBreakdown"`

	RecentEvents []AnalyticsEvent `json:"recentEvents,omitempty"`
}

// TimeSeriesData represents a data point over time
type TimeSeriesData struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

// BreakdownItem is one slice of a percentage distribution.
type BreakdownItem struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}
