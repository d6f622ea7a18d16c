// Package closing builds closing rules from local date and time text and
// applies edits to them row by row.
package closing

import (
	"errors"
	"strings"
	"time"

	"openinghours/internal/clock"
	"openinghours/internal/model"
	"openinghours/internal/tz"
)

var (
	ErrRequired = errors.New("this field is required")
	ErrDate     = errors.New("enter a valid date (YYYY-MM-DD)")
)

// BuildInstant combines a local date and a time in the display format and
// resolves them in the premises timezone, never the process one.
func BuildInstant(codec *clock.Codec, dateText, timeText, tzID string) (time.Time, error) {
	loc, err := tz.Location(tzID)
	if err != nil {
		return time.Time{}, err
	}
	instant, _, err := buildIn(codec, dateText, timeText, loc)
	return instant, err
}

// buildIn reports which input failed: "date" or "time".
func buildIn(codec *clock.Codec, dateText, timeText string, loc *time.Location) (time.Time, string, error) {
	if strings.TrimSpace(dateText) == "" {
		return time.Time{}, "date", ErrRequired
	}
	date, err := tz.ParseDate(strings.TrimSpace(dateText))
	if err != nil {
		return time.Time{}, "date", ErrDate
	}
	if strings.TrimSpace(timeText) == "" {
		return time.Time{}, "time", ErrRequired
	}
	t, err := codec.Parse(timeText)
	if err != nil {
		return time.Time{}, "time", err
	}
	r := tz.ResolveIn(tz.Local{Date: date, Time: t}, loc)
	return r.Instant, "", nil
}

// Overlaps reports whether at falls inside the rule, start inclusive and end exclusive.
func Overlaps(rule model.ClosingRule, at time.Time) bool {
	return rule.Covers(at)
}

// Active returns the first rule covering at, or nil.
func Active(rules []model.ClosingRule, at time.Time) *model.ClosingRule {
	for i := range rules {
		if Overlaps(rules[i], at) {
			return &rules[i]
		}
	}
	return nil
}
