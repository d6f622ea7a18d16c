package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"openinghours/internal/clock"
	"openinghours/internal/metrics"
	"openinghours/internal/model"

	"github.com/rs/zerolog"
)

// Store loads and atomically replaces a premises' weekly hours.
type Store interface {
	ListOpeningHours(ctx context.Context, premisesID int64) ([]model.OpeningHours, error)
	ReplaceOpeningHours(ctx context.Context, premisesID int64, hours []model.OpeningHours) error
}

// Invalidator drops derived copies of a premises' schedule after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, premisesID int64) error
}

var (
	ErrWeekday   = errors.New("weekday must be between 1 and 7")
	ErrSlot      = errors.New("slot must be 1 or 2")
	ErrDuplicate = errors.New("slot submitted more than once")
	ErrOvernight = errors.New("closing time is before opening time")
)

// SlotInput is one submitted slot. Absent slots are not submitted.
type SlotInput struct {
	Weekday int    `json:"weekday"`
	Slot    int    `json:"slot"`
	Opens   string `json:"opens"`
	Shuts   string `json:"shuts"`
}

// FieldError ties a validation failure to a form field such as "day1_2-opens".
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationErrors holds every failure of one submission.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "invalid opening hours: " + strings.Join(parts, "; ")
}

// Fields maps field names to messages.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[fe.Field] = fe.Err.Error()
	}
	return out
}

// Engine reads and writes the editable week of a premises.
type Engine struct {
	store  Store
	codec  *clock.Codec
	cache  Invalidator
	logger *zerolog.Logger
}

func NewEngine(store Store, codec *clock.Codec, cache Invalidator, logger *zerolog.Logger) *Engine {
	return &Engine{store: store, codec: codec, cache: cache, logger: logger}
}

// Codec returns the display codec the engine renders with.
func (e *Engine) Codec() *clock.Codec { return e.codec }

// View loads a premises' hours and builds its editing view.
func (e *Engine) View(ctx context.Context, premisesID int64) (WeekView, error) {
	hours, err := e.store.ListOpeningHours(ctx, premisesID)
	if err != nil {
		return WeekView{}, err
	}
	return BuildWeekView(e.codec, hours), nil
}

type slotKey struct {
	day  model.Weekday
	slot int
}

// Save validates every submitted slot and, only if all are valid, replaces
// the premises' whole weekly schedule. Slots whose opening and closing times
// are equal are dropped. Intervals the editor could not show are lost.
func (e *Engine) Save(ctx context.Context, premisesID int64, inputs []SlotInput) error {
	hours, verr := e.validate(inputs)
	if len(verr) > 0 {
		metrics.IncHoursSaved("invalid")
		return verr
	}

	if err := e.store.ReplaceOpeningHours(ctx, premisesID, hours); err != nil {
		metrics.IncHoursSaved("error")
		return fmt.Errorf("save opening hours: %w", err)
	}
	metrics.IncHoursSaved("saved")

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, premisesID); err != nil {
			e.logger.Error().Err(err).Int64("premises_id", premisesID).Msg("Failed to invalidate schedule cache")
		}
	}

	e.logger.Debug().
		Int64("premises_id", premisesID).
		Int("submitted", len(inputs)).
		Int("stored", len(hours)).
		Msg("Opening hours saved")
	return nil
}

func (e *Engine) validate(inputs []SlotInput) ([]model.OpeningHours, ValidationErrors) {
	var (
		verr ValidationErrors
		keys = make([]slotKey, 0, len(inputs))
		rows = make(map[slotKey]model.OpeningHours, len(inputs))
	)

	for i, in := range inputs {
		day := model.Weekday(in.Weekday)
		field := fmt.Sprintf("slots[%d]", i)
		if !day.Valid() {
			verr = append(verr, FieldError{Field: field, Err: ErrWeekday})
			continue
		}
		if in.Slot < 1 || in.Slot > PerDay {
			verr = append(verr, FieldError{Field: field, Err: ErrSlot})
			continue
		}

		k := slotKey{day: day, slot: in.Slot}
		prefix := Prefix(day, in.Slot)
		if _, seen := rows[k]; seen {
			verr = append(verr, FieldError{Field: prefix, Err: ErrDuplicate})
			continue
		}

		opens, oerr := e.codec.Parse(in.Opens)
		if oerr != nil {
			verr = append(verr, FieldError{Field: prefix + "-opens", Err: oerr})
		}
		shuts, serr := e.codec.Parse(in.Shuts)
		if serr != nil {
			verr = append(verr, FieldError{Field: prefix + "-shuts", Err: serr})
		}
		if oerr == nil && serr == nil && shuts.Before(opens) {
			verr = append(verr, FieldError{Field: prefix + "-shuts", Err: ErrOvernight})
		}

		rows[k] = model.OpeningHours{Weekday: day, Opens: opens, Shuts: shuts}
		keys = append(keys, k)
	}

	if len(verr) > 0 {
		return nil, verr
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day < keys[j].day
		}
		return keys[i].slot < keys[j].slot
	})

	hours := make([]model.OpeningHours, 0, len(keys))
	for _, k := range keys {
		h := rows[k]
		if h.Empty() {
			continue
		}
		hours = append(hours, h)
	}
	return hours, nil
}
