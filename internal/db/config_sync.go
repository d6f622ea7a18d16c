package db

import (
	"context"
	"fmt"
	"time"

	"openinghours/internal/clock"
	"openinghours/internal/config"
	"openinghours/internal/model"
	"openinghours/internal/tz"
)

// SyncPremisesFromConfig applies premises.yaml to the database.
// It upserts premises, seeds default hours once, marks missing premises
// inactive and adds each holiday's closing rule once.
func (db *DB) SyncPremisesFromConfig(ctx context.Context, cfg *config.PremisesCatalog) error {
	if cfg == nil {
		return fmt.Errorf("premises config is nil")
	}

	now := time.Now().UTC()
	seen := make(map[int64]config.PremisesConfig)

	for _, pc := range cfg.Premises {
		p := &model.Premises{
			ID:       int64(pc.ID),
			Slug:     pc.Slug,
			Name:     pc.Name,
			Timezone: pc.Timezone,
			IsActive: pc.IsActive,
		}
		if err := db.UpsertPremises(ctx, p); err != nil {
			return fmt.Errorf("sync premises %d: %w", pc.ID, err)
		}
		seen[p.ID] = pc

		if err := db.seedHoursFromConfig(ctx, p.ID, pc.DefaultHours); err != nil {
			return fmt.Errorf("sync premises %d hours: %w", pc.ID, err)
		}
	}

	// Deactivate premises that disappeared from config.
	var ids []int64
	if err := db.SelectContext(ctx, &ids, `SELECT id FROM premises`); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := db.ExecContext(ctx, `UPDATE premises SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate premises %d: %w", id, err)
		}
	}

	for _, h := range cfg.Holidays {
		date, err := tz.ParseDate(h.Date)
		if err != nil {
			return fmt.Errorf("parse holiday %s: %w", h.Date, err)
		}
		for id, pc := range seen {
			rule, err := HolidayRule(id, pc.Timezone, date, h.Name)
			if err != nil {
				return err
			}
			if _, err := db.SeedHoliday(ctx, date, rule); err != nil {
				db.logger.Warn().Err(err).Int64("premises_id", id).Str("date", h.Date).Msg("Failed to add holiday")
			}
		}
	}

	return nil
}

// HolidayRule closes a premises for a whole local calendar day.
func HolidayRule(premisesID int64, timezone string, date tz.Date, reason string) (*model.ClosingRule, error) {
	start, err := tz.ToAbsolute(tz.Local{Date: date}, timezone)
	if err != nil {
		return nil, fmt.Errorf("holiday %s: %w", date, err)
	}
	end, err := tz.ToAbsolute(tz.Local{Date: date.AddDays(1)}, timezone)
	if err != nil {
		return nil, fmt.Errorf("holiday %s: %w", date, err)
	}
	return &model.ClosingRule{PremisesID: premisesID, Start: start, End: end, Reason: reason}, nil
}

// seedHoursFromConfig stores default hours once per premises. Hours saved
// through the API, including a week with every day closed, are never reseeded.
func (db *DB) seedHoursFromConfig(ctx context.Context, premisesID int64, hc *config.HoursConfig) error {
	if hc == nil {
		return nil
	}

	var seeded bool
	if err := db.GetContext(ctx, &seeded, `SELECT hours_seeded FROM premises WHERE id = ?`, premisesID); err != nil {
		return err
	}
	if seeded {
		return nil
	}

	// Databases created before hours_seeded existed keep their stored hours.
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM opening_hours WHERE premises_id = ?`, premisesID); err != nil {
		return err
	}
	if count > 0 {
		_, err := db.ExecContext(ctx, `UPDATE premises SET hours_seeded = 1 WHERE id = ?`, premisesID)
		return err
	}

	hours, err := HoursFromConfig(hc)
	if err != nil {
		return err
	}
	return db.ReplaceOpeningHours(ctx, premisesID, hours)
}

// HoursFromConfig expands an hours block into weekly slots. A break splits
// each open day into a morning and an afternoon slot.
func HoursFromConfig(hc *config.HoursConfig) ([]model.OpeningHours, error) {
	codec := clock.NewCodec(clock.Format24)

	opens, err := codec.Parse(hc.Opens)
	if err != nil {
		return nil, err
	}
	shuts, err := codec.Parse(hc.Shuts)
	if err != nil {
		return nil, err
	}

	ranges := [][2]clock.Time{{opens, shuts}}
	if hc.BreakStart != "" {
		breakStart, err := codec.Parse(hc.BreakStart)
		if err != nil {
			return nil, err
		}
		breakEnd, err := codec.Parse(hc.BreakEnd)
		if err != nil {
			return nil, err
		}
		ranges = [][2]clock.Time{{opens, breakStart}, {breakEnd, shuts}}
	}

	var out []model.OpeningHours
	for _, day := range model.AllWeekdays() {
		if hc.IsDayOff(int(day)) {
			continue
		}
		for _, r := range ranges {
			out = append(out, model.OpeningHours{Weekday: day, Opens: r[0], Shuts: r[1]})
		}
	}
	return out, nil
}
