package model

import "time"

// ClosingRule forces a premises closed between two absolute instants.
type ClosingRule struct {
	ID         int64     `json:"id" db:"id"`
	PremisesID int64     `json:"premises_id" db:"premises_id"`
	Start      time.Time `json:"start" db:"start_at"`
	End        time.Time `json:"end" db:"end_at"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
}

// Covers reports whether at falls within [Start, End).
func (r ClosingRule) Covers(at time.Time) bool {
	return !at.Before(r.Start) && at.Before(r.End)
}
