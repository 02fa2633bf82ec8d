package database

import "errors"

// ErrUnknownCounter is returned when an increment targets a counter column
// the repository doesn't know about.
var ErrUnknownCounter = errors.New("unknown counter")

// Counter names a shortlink counter column that supports atomic increments.
type Counter string

const (
	CounterClicks       Counter = "clicks"
	CounterUniqueClicks Counter = "unique_clicks"
)

// ShortlinkPatch describes a partial update of a shortlink record.
// Nil fields are left untouched; every applied patch refreshes updated_at.
type ShortlinkPatch struct {
	DestinationURL *string
	Title          *string
	Campaign       *string
	IsActive       *bool
}
