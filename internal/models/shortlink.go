package models

import "time"

// Shortlink represents a persistent mapping from a short code to a destination URL.
type Shortlink struct {
	// ShortCode is the primary key of the record. It is immutable once created
	// and never reused after deletion within the same process lifetime.
	ShortCode string
	// DestinationURL is the absolute URL the short code redirects to.
	DestinationURL string
	// Title is an optional human-readable label.
	Title string
	// Campaign is an optional free-text tag used for grouping links.
	Campaign string
	// IsActive controls whether the link resolves. Inactive links behave
	// identically to missing ones from the resolver's perspective.
	IsActive bool
	// Clicks counts every tracked redirect through this link.
	Clicks int64
	// UniqueClicks counts tracked redirects from distinct browsing sessions.
	// It is a best-effort, session-scoped approximation: the same person in
	// two sessions counts twice. Never treat it as a deduplicated count.
	UniqueClicks int64
	// CreatedAt is set once at creation.
	CreatedAt time.Time
	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time
}

// ClickEvent is an immutable record of one tracked redirect, owned by a
// Shortlink. It is created only by the click recorder and destroyed only as
// a cascade of shortlink deletion.
type ClickEvent struct {
	ID           int64
	ShortCode    string
	Timestamp    time.Time
	Referrer     string
	UserAgent    string
	ScreenWidth  int
	ScreenHeight int
	Language     string
	Pathname     string
}

// DeviceBreakdown groups clicks by coarse device class derived from the
// user-agent string.
type DeviceBreakdown struct {
	Mobile  int `json:"mobile"`
	Tablet  int `json:"tablet"`
	Desktop int `json:"desktop"`
}

// ClickSummary is an on-demand aggregation over a bounded window of recent
// click events for one shortlink. TotalClicks reflects only the fetched
// window and may be smaller than the shortlink's persisted Clicks counter.
type ClickSummary struct {
	TotalClicks        int
	Clicks             []ClickEvent
	Referrers          map[string]int
	Devices            DeviceBreakdown
	HourlyDistribution [24]int
}
