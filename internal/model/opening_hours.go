package model

import (
	"openinghours/internal/clock"
)

// OpeningHours is one contiguous opening interval on a weekday.
// Opens is inclusive, Shuts exclusive.
type OpeningHours struct {
	ID         int64      `json:"id" db:"id"`
	PremisesID int64      `json:"premises_id" db:"premises_id"`
	Weekday    Weekday    `json:"weekday" db:"weekday"`
	Opens      clock.Time `json:"opens" db:"opens"`
	Shuts      clock.Time `json:"shuts" db:"shuts"`
}

// Contains reports whether t falls within [Opens, Shuts).
// Intervals with Shuts at or before Opens contain nothing.
func (h OpeningHours) Contains(t clock.Time) bool {
	return !t.Before(h.Opens) && t.Before(h.Shuts)
}

// Empty reports a zero-length interval, which is never stored by the editor.
func (h OpeningHours) Empty() bool {
	return h.Opens == h.Shuts
}
