// Package clock converts between local wall-clock times and their display text.
package clock

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Format selects how times are rendered and parsed.
type Format int

const (
	Format12 Format = 12
	Format24 Format = 24
)

const (
	layout24 = "15:04"
	layout12 = "03:04 PM"
	// Accepts "9:30 PM" as well as "09:30 PM".
	layout12Loose = "3:04 PM"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("invalid time")

// FormatError reports text that could not be parsed as a time of day.
type FormatError struct {
	Value  string
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q for %d-hour format", e.Value, int(e.Format))
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// ParseFormat maps the configured 12/24 value to a Format.
func ParseFormat(v int) (Format, error) {
	switch Format(v) {
	case Format12, Format24:
		return Format(v), nil
	}
	return 0, fmt.Errorf("time format must be 12 or 24, got %d", v)
}

// Time is a local time of day with minute precision.
type Time struct {
	Hour   int
	Minute int
}

// New builds a Time, rejecting values outside 00:00-23:59.
func New(hour, minute int) (Time, error) {
	t := Time{Hour: hour, Minute: minute}
	if !t.Valid() {
		return Time{}, &FormatError{Value: fmt.Sprintf("%d:%d", hour, minute), Format: Format24}
	}
	return t, nil
}

// MustNew is New for constants and tests.
func MustNew(hour, minute int) Time {
	t, err := New(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMinutes converts minutes since midnight.
func FromMinutes(m int) Time {
	return Time{Hour: m / 60, Minute: m % 60}
}

// Of returns the wall-clock time of t in its own location, seconds truncated.
func Of(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute()}
}

func (t Time) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// Minutes returns minutes since midnight.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t Time) Compare(o Time) int {
	switch {
	case t.Minutes() < o.Minutes():
		return -1
	case t.Minutes() > o.Minutes():
		return 1
	}
	return 0
}

func (t Time) Before(o Time) bool { return t.Compare(o) < 0 }

// String returns the canonical "HH:MM" form used for storage.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for TEXT "HH:MM" and "HH:MM:SS" columns.
func (t *Time) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("clock: cannot scan %T", src)
	}
	if len(s) > 5 {
		s = s[:5]
	}
	parsed, err := time.Parse(layout24, s)
	if err != nil {
		return &FormatError{Value: s, Format: Format24, Err: err}
	}
	*t = Of(parsed)
	return nil
}

// MarshalText encodes t as "HH:MM".
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *Time) UnmarshalText(b []byte) error {
	parsed, err := time.Parse(layout24, string(b))
	if err != nil {
		return &FormatError{Value: string(b), Format: Format24, Err: err}
	}
	*t = Of(parsed)
	return nil
}

// Codec parses and formats times in one configured Format.
type Codec struct {
	format Format
}

func NewCodec(f Format) *Codec {
	return &Codec{format: f}
}

func (c *Codec) Format() Format { return c.format }

// Parse reads text in the codec's format.
func (c *Codec) Parse(text string) (Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Time{}, &FormatError{Value: text, Format: c.format, Err: errors.New("empty")}
	}

	var (
		parsed time.Time
		err    error
	)
	if c.format == Format12 {
		// The 12-hour clock runs 12, 1 .. 11; time.Parse would also take 00.
		if h, _, ok := strings.Cut(s, ":"); ok && strings.Trim(h, "0") == "" {
			return Time{}, &FormatError{Value: text, Format: c.format, Err: errors.New("hour must be 1-12")}
		}
		parsed, err = time.Parse(layout12Loose, strings.ToUpper(s))
	} else {
		parsed, err = time.Parse(layout24, s)
	}
	if err != nil {
		return Time{}, &FormatError{Value: text, Format: c.format, Err: err}
	}
	return Of(parsed), nil
}

// Text renders t in the codec's format.
func (c *Codec) Text(t Time) string {
	ref := time.Date(2000, time.January, 1, t.Hour, t.Minute, 0, 0, time.UTC)
	if c.format == Format12 {
		return ref.Format(layout12)
	}
	return ref.Format(layout24)
}

// Choices returns the half-hour options for the codec's format.
func (c *Codec) Choices() []Choice {
	return Choices(c.format)
}

// Choice is one selectable time; the value doubles as its label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	choices12 = sync.OnceValue(func() []Choice { return buildChoices(Format12) })
	choices24 = sync.OnceValue(func() []Choice { return buildChoices(Format24) })
)

// Choices returns the 48 half-hour marks from 00:00 to 23:30.
// The slice is shared and must not be modified.
func Choices(f Format) []Choice {
	if f == Format12 {
		return choices12()
	}
	return choices24()
}

func buildChoices(f Format) []Choice {
	c := NewCodec(f)
	out := make([]Choice, 0, 48)
	for m := 0; m < 24*60; m += 30 {
		text := c.Text(FromMinutes(m))
		out = append(out, Choice{Value: text, Label: text})
	}
	return out
}
