package domain

import "time"

// EventSource identifies which upstream feed an event came from.
type EventSource string

const (
	// PrimaryFeed is the USGS GeoJSON feed (structured, authoritative).
	PrimaryFeed EventSource = "USGS"
	// SecondaryScrape is the PHIVOLCS bulletin page (scraped HTML).
	SecondaryScrape EventSource = "PHIVOLCS"
)

// QuakeEvent is the canonical event shape both adapters normalize into.
// Optional fields are pointers so "not reported" survives through to the
// API and notification output instead of collapsing to zero.
type QuakeEvent struct {
	ID         string      `json:"id"`
	Magnitude  *float64    `json:"mag,omitempty"`
	Place      string      `json:"place,omitempty"`
	TimeMillis *int64      `json:"time,omitempty"`
	Lat        *float64    `json:"lat,omitempty"`
	Lon        *float64    `json:"lon,omitempty"`
	DepthKm    *float64    `json:"depth,omitempty"`
	Source     EventSource `json:"source"`
	FetchedAt  time.Time   `json:"fetched_at,omitzero"`
}

// MagnitudeOrZero returns the magnitude, treating "not reported" as 0.
// Used for ordering and threshold comparison; display keeps the nil.
func (e QuakeEvent) MagnitudeOrZero() float64 {
	if e.Magnitude == nil {
		return 0
	}
	return *e.Magnitude
}

// TimeMillisOrZero returns the epoch-millisecond timestamp, treating
// "not reported" as 0 so undated events sort to the end of the feed.
func (e QuakeEvent) TimeMillisOrZero() int64 {
	if e.TimeMillis == nil {
		return 0
	}
	return *e.TimeMillis
}

// OccurredAt returns the event time as a UTC time.Time, or the zero time
// when the source did not report one.
func (e QuakeEvent) OccurredAt() time.Time {
	if e.TimeMillis == nil {
		return time.Time{}
	}
	return time.UnixMilli(*e.TimeMillis).UTC()
}
