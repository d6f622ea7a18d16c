// Package status decides whether a premises is open at a given instant.
package status

import (
	"context"
	"time"

	"openinghours/internal/cache"
	"openinghours/internal/clock"
	"openinghours/internal/closing"
	"openinghours/internal/metrics"
	"openinghours/internal/model"
	"openinghours/internal/tz"

	"github.com/rs/zerolog"
)

type Reason string

const (
	// ReasonClosingRule means a closing rule overrides the weekly hours.
	ReasonClosingRule  Reason = "closing_rule"
	ReasonOpeningHours Reason = "opening_hours"
	ReasonOutsideHours Reason = "outside_hours"
)

// Status is the answer for one instant.
type Status struct {
	Open     bool                `json:"open"`
	Reason   Reason              `json:"reason"`
	At       time.Time           `json:"at"`
	Local    string              `json:"local"`
	Weekday  model.Weekday       `json:"weekday"`
	Rule     *model.ClosingRule  `json:"rule,omitempty"`
	Interval *model.OpeningHours `json:"interval,omitempty"`
}

// Evaluate applies closing rules first, then the weekly hours of the local
// weekday. Opening times are inclusive and closing times exclusive, compared
// to the minute.
func Evaluate(now time.Time, loc *time.Location, hours []model.OpeningHours, rules []model.ClosingRule) Status {
	local := now.In(loc)
	st := Status{
		At:      now,
		Local:   local.Format("2006-01-02 15:04"),
		Weekday: model.WeekdayOf(local.Weekday()),
		Reason:  ReasonOutsideHours,
	}

	if r := closing.Active(rules, now); r != nil {
		rule := *r
		st.Reason = ReasonClosingRule
		st.Rule = &rule
		return st
	}

	t := clock.Of(local)
	for i := range hours {
		h := hours[i]
		if h.Weekday == st.Weekday && h.Contains(t) {
			st.Open = true
			st.Reason = ReasonOpeningHours
			st.Interval = &h
			break
		}
	}
	return st
}

// Store loads what the evaluator needs for one premises.
type Store interface {
	GetPremises(ctx context.Context, id int64) (*model.Premises, error)
	ListOpeningHours(ctx context.Context, premisesID int64) ([]model.OpeningHours, error)
	ListClosingRules(ctx context.Context, premisesID int64) ([]model.ClosingRule, error)
}

// ScheduleCache holds loaded schedules between calls. Set must skip the
// write when the premises was invalidated after gen was read.
type ScheduleCache interface {
	Get(ctx context.Context, premisesID int64) (*cache.Schedule, bool)
	Generation(ctx context.Context, premisesID int64) (gen int64, ok bool)
	Set(ctx context.Context, s *cache.Schedule, gen int64)
}

// Evaluator answers open/closed questions from stored data.
type Evaluator struct {
	store  Store
	cache  ScheduleCache
	logger *zerolog.Logger
}

// NewEvaluator builds an evaluator. cache may be nil.
func NewEvaluator(store Store, sc ScheduleCache, logger *zerolog.Logger) *Evaluator {
	return &Evaluator{store: store, cache: sc, logger: logger}
}

// Schedule returns the premises with its hours and rules, from cache when possible.
func (e *Evaluator) Schedule(ctx context.Context, premisesID int64) (*cache.Schedule, error) {
	var (
		gen       int64
		cacheable bool
	)
	if e.cache != nil {
		if s, ok := e.cache.Get(ctx, premisesID); ok {
			return s, nil
		}
		gen, cacheable = e.cache.Generation(ctx, premisesID)
	}

	p, err := e.store.GetPremises(ctx, premisesID)
	if err != nil {
		return nil, err
	}
	hours, err := e.store.ListOpeningHours(ctx, premisesID)
	if err != nil {
		return nil, err
	}
	rules, err := e.store.ListClosingRules(ctx, premisesID)
	if err != nil {
		return nil, err
	}

	s := &cache.Schedule{Premises: *p, Hours: hours, Rules: rules}
	if cacheable {
		e.cache.Set(ctx, s, gen)
	}
	return s, nil
}

// Status evaluates a premises at now in its own timezone.
func (e *Evaluator) Status(ctx context.Context, premisesID int64, now time.Time) (Status, error) {
	s, err := e.Schedule(ctx, premisesID)
	if err != nil {
		return Status{}, err
	}
	loc, err := tz.Location(s.Premises.Timezone)
	if err != nil {
		return Status{}, err
	}

	st := Evaluate(now, loc, s.Hours, s.Rules)
	metrics.IncStatusCheck(st.Open)
	e.logger.Debug().
		Int64("premises_id", premisesID).
		Time("at", now).
		Bool("open", st.Open).
		Str("reason", string(st.Reason)).
		Msg("Status evaluated")
	return st, nil
}

// IsOpenAt reports whether a premises is open at now.
func (e *Evaluator) IsOpenAt(ctx context.Context, premisesID int64, now time.Time) (bool, error) {
	st, err := e.Status(ctx, premisesID, now)
	if err != nil {
		return false, err
	}
	return st.Open, nil
}
