// Package tz converts between a premises' local wall-clock time and absolute instants.
//
// Wall times that occur twice (clocks going back) or not at all (clocks going
// forward) are resolved with a fixed policy: prefer the standard-time offset.
// An ambiguous time therefore maps to its second, standard-time occurrence, and
// a time inside a gap is read with the standard offset, landing after the gap
// (02:30 on a spring-forward night in Europe/Zurich becomes 03:30 CEST). When
// both offsets share the same DST flag the pre-transition offset wins.
package tz

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone database independent of the host

	"openinghours/internal/clock"
)

const dateLayout = "2006-01-02"

// UnknownTimezoneError is returned for identifiers the zone database does not know.
type UnknownTimezoneError struct {
	ID  string
	Err error
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("unknown timezone %q", e.ID)
}

func (e *UnknownTimezoneError) Unwrap() error { return e.Err }

// Location loads a zone by IANA identifier. The empty string and "Local" are
// rejected so the process timezone never leaks into a premises' schedule.
func Location(id string) (*time.Location, error) {
	if id == "" || id == "Local" {
		return nil, &UnknownTimezoneError{ID: id, Err: errors.New("explicit IANA zone required")}
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, &UnknownTimezoneError{ID: id, Err: err}
	}
	return loc, nil
}

// Date is a calendar date without zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate reads "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days later, normalising month ends.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Local is a wall-clock date and time in some unnamed zone.
type Local struct {
	Date Date
	Time clock.Time
}

func (l Local) String() string {
	return l.Date.String() + " " + l.Time.String()
}

// Kind classifies how a wall time maps onto instants.
type Kind int

const (
	Exact Kind = iota
	Ambiguous
	Nonexistent
)

func (k Kind) String() string {
	switch k {
	case Ambiguous:
		return "ambiguous"
	case Nonexistent:
		return "nonexistent"
	}
	return "exact"
}

// Resolution is the instant chosen for a wall time and how it was chosen.
type Resolution struct {
	Instant time.Time
	Kind    Kind
}

// Resolve maps a wall time in zone id to an absolute instant.
func Resolve(l Local, id string) (Resolution, error) {
	loc, err := Location(id)
	if err != nil {
		return Resolution{}, err
	}
	return ResolveIn(l, loc), nil
}

type offsetOption struct {
	seconds int
	dst     bool
}

// ResolveIn is Resolve for an already loaded location.
func ResolveIn(l Local, loc *time.Location) Resolution {
	naive := time.Date(l.Date.Year, l.Date.Month, l.Date.Day, l.Time.Hour, l.Time.Minute, 0, 0, time.UTC)

	// Offsets in force around the wall time, pre-transition first.
	var options []offsetOption
	for _, probe := range []time.Duration{-24 * time.Hour, 0, 24 * time.Hour} {
		at := naive.Add(probe).In(loc)
		_, off := at.Zone()
		dup := false
		for _, o := range options {
			if o.seconds == off {
				dup = true
				break
			}
		}
		if !dup {
			options = append(options, offsetOption{seconds: off, dst: at.IsDST()})
		}
	}

	var matching []offsetOption
	for _, o := range options {
		if sameWall(naive.Add(-time.Duration(o.seconds)*time.Second).In(loc), naive) {
			matching = append(matching, o)
		}
	}

	switch len(matching) {
	case 1:
		return Resolution{Instant: instant(naive, matching[0], loc), Kind: Exact}
	case 0:
		return Resolution{Instant: instant(naive, preferStandard(options), loc), Kind: Nonexistent}
	default:
		return Resolution{Instant: instant(naive, preferStandard(matching), loc), Kind: Ambiguous}
	}
}

func preferStandard(options []offsetOption) offsetOption {
	for _, o := range options {
		if !o.dst {
			return o
		}
	}
	return options[0]
}

func instant(naive time.Time, o offsetOption, loc *time.Location) time.Time {
	return naive.Add(-time.Duration(o.seconds) * time.Second).In(loc)
}

func sameWall(t, naive time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := naive.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 && t.Hour() == naive.Hour() && t.Minute() == naive.Minute()
}

// ToAbsolute converts a wall time in zone id to an instant.
func ToAbsolute(l Local, id string) (time.Time, error) {
	r, err := Resolve(l, id)
	if err != nil {
		return time.Time{}, err
	}
	return r.Instant, nil
}

// ToLocal returns the wall time of t in zone id, seconds truncated.
func ToLocal(t time.Time, id string) (Local, error) {
	loc, err := Location(id)
	if err != nil {
		return Local{}, err
	}
	lt := t.In(loc)
	return Local{Date: DateOf(lt), Time: clock.Of(lt)}, nil
}
