package models

import (
	"time"
)

// DateLayout is the timestamp layout used by the campaign logs.
const DateLayout = "2006-01-02 15:04:05"

// ===========================================
// LOG DATE
// ===========================================

// LogDate is a log timestamp that may be absent or unparseable.
// Valid reports whether the date exists; records with an invalid date are
// excluded from every aggregation.
type LogDate struct {
	Time  time.Time
	Valid bool
}

// NewLogDate returns a valid LogDate truncated to second precision.
func NewLogDate(t time.Time) LogDate {
	return LogDate{Time: t.Truncate(time.Second), Valid: true}
}

// ParseLogDate parses a log timestamp. Empty or malformed input yields an
// invalid date rather than an error.
func ParseLogDate(s string) LogDate {
	if s == "" || s == "n/a" {
		return LogDate{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return LogDate{}
	}
	return NewLogDate(t)
}

// String renders the date in log layout, or "n/a" when absent.
func (d LogDate) String() string {
	if !d.Valid {
		return "n/a"
	}
	return d.Time.Format(DateLayout)
}

// ===========================================
// IMPRESSION EVENT
// ===========================================

// ImpressionRecord is one ad impression served to a user. The demographic
// fields are the source of the user profile used by filters.
type ImpressionRecord struct {
	Date           LogDate `json:"date"`
	UserID         string  `json:"user_id"`
	Gender         string  `json:"gender,omitempty"`
	Age            string  `json:"age,omitempty"`     // e.g. "25-34"
	Income         string  `json:"income,omitempty"`  // Low, Medium, High
	Context        string  `json:"context,omitempty"` // News, Shopping, Social Media, ...
	ImpressionCost float64 `json:"impression_cost,omitempty"`

	// Geo info
	IP      string `json:"ip,omitempty"`
	Country string `json:"country,omitempty"`
}

// ===========================================
// CLICK EVENT
// ===========================================

// ClickRecord is one click on an ad.
type ClickRecord struct {
	Date      LogDate `json:"date"`
	UserID    string  `json:"user_id"`
	ClickCost float64 `json:"click_cost"`
}

// ===========================================
// SERVER (LANDING SESSION) EVENT
// ===========================================

// UnknownPages marks a session whose page count was missing or malformed.
const UnknownPages = -1

// ServerRecord is a landing-page session that followed a click.
type ServerRecord struct {
	EntryDate   LogDate `json:"entry_date"`
	UserID      string  `json:"user_id"`
	ExitDate    LogDate `json:"exit_date"` // invalid when the session never closed
	PagesViewed int     `json:"pages_viewed"` // UnknownPages when not recorded
	Conversion  bool    `json:"conversion"`
}

// Duration returns the session length. ok is false when either date is absent.
func (s ServerRecord) Duration() (d time.Duration, ok bool) {
	if !s.EntryDate.Valid || !s.ExitDate.Valid {
		return 0, false
	}
	return s.ExitDate.Time.Sub(s.EntryDate.Time), true
}

// ===========================================
// USER PROFILE
// ===========================================

// UserProfile holds the filterable attributes of a user.
type UserProfile struct {
	UserID  string `json:"user_id"`
	Gender  string `json:"gender,omitempty"`
	Age     string `json:"age,omitempty"`
	Income  string `json:"income,omitempty"`
	Context string `json:"context,omitempty"`
	Country string `json:"country,omitempty"`
}

// ProfileFromImpression extracts the user attributes carried by an impression.
func ProfileFromImpression(imp ImpressionRecord) UserProfile {
	return UserProfile{
		UserID:  imp.UserID,
		Gender:  imp.Gender,
		Age:     imp.Age,
		Income:  imp.Income,
		Context: imp.Context,
		Country: imp.Country,
	}
}
