package db

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"openinghours/internal/clock"
	"openinghours/internal/config"
	"openinghours/internal/model"
	"openinghours/internal/tz"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedPremises(t *testing.T, db *DB, slug, timezone string) *model.Premises {
	t.Helper()
	p := &model.Premises{Slug: slug, Name: slug, Timezone: timezone, IsActive: true}
	require.NoError(t, db.UpsertPremises(context.Background(), p))
	return p
}

func TestPremises_GetBySlug(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedPremises(t, db, "acme", "Europe/Zurich")

	got, err := db.GetPremisesBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Europe/Zurich", got.Timezone)
	assert.True(t, got.IsActive)

	_, err = db.GetPremisesBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetPremises(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpeningHours_ReplaceAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedPremises(t, db, "acme", "Europe/Zurich")

	hours := []model.OpeningHours{
		{Weekday: model.Tuesday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
		{Weekday: model.Monday, Opens: clock.MustNew(13, 0), Shuts: clock.MustNew(18, 0)},
		{Weekday: model.Monday, Opens: clock.MustNew(8, 0), Shuts: clock.MustNew(12, 0)},
	}
	require.NoError(t, db.ReplaceOpeningHours(ctx, p.ID, hours))

	got, err := db.ListOpeningHours(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.Monday, got[0].Weekday)
	assert.Equal(t, clock.MustNew(8, 0), got[0].Opens)
	assert.Equal(t, clock.MustNew(13, 0), got[1].Opens)
	assert.Equal(t, model.Tuesday, got[2].Weekday)
	assert.Equal(t, p.ID, got[2].PremisesID)

	// a second replace drops everything stored before
	require.NoError(t, db.ReplaceOpeningHours(ctx, p.ID, []model.OpeningHours{
		{Weekday: model.Friday, Opens: clock.MustNew(10, 0), Shuts: clock.MustNew(11, 0)},
	}))
	got, err = db.ListOpeningHours(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Friday, got[0].Weekday)
}

func TestOpeningHours_ScopedToPremises(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedPremises(t, db, "a", "UTC")
	b := seedPremises(t, db, "b", "UTC")

	require.NoError(t, db.InsertOpeningHours(ctx, &model.OpeningHours{
		PremisesID: b.ID, Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(10, 0),
	}))
	require.NoError(t, db.DeleteOpeningHours(ctx, a.ID))

	got, err := db.ListOpeningHours(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestClosingRules_CRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedPremises(t, db, "acme", "Europe/Zurich")
	zurich, err := tz.Location("Europe/Zurich")
	require.NoError(t, err)

	later := &model.ClosingRule{
		PremisesID: p.ID,
		Start:      time.Date(2026, 12, 24, 12, 0, 0, 0, zurich),
		End:        time.Date(2026, 12, 27, 0, 0, 0, 0, zurich),
		Reason:     "Christmas",
	}
	earlier := &model.ClosingRule{
		PremisesID: p.ID,
		Start:      time.Date(2026, 8, 1, 0, 0, 0, 0, zurich),
		End:        time.Date(2026, 8, 2, 0, 0, 0, 0, zurich),
	}
	require.NoError(t, db.UpsertClosingRule(ctx, later))
	require.NoError(t, db.UpsertClosingRule(ctx, earlier))
	assert.NotZero(t, later.ID)

	rules, err := db.ListClosingRules(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, earlier.ID, rules[0].ID)
	assert.Equal(t, "", rules[0].Reason)
	assert.True(t, rules[1].Start.Equal(later.Start))
	assert.Equal(t, "Christmas", rules[1].Reason)

	later.Reason = "Holidays"
	require.NoError(t, db.UpsertClosingRule(ctx, later))
	got, err := db.GetClosingRule(ctx, p.ID, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "Holidays", got.Reason)

	ghost := &model.ClosingRule{ID: 999, PremisesID: p.ID, Start: later.Start, End: later.End}
	assert.ErrorIs(t, db.UpsertClosingRule(ctx, ghost), ErrNotFound)

	between, err := db.ListClosingRulesBetween(ctx, p.ID,
		time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, later.ID, between[0].ID)

	require.NoError(t, db.DeleteClosingRule(ctx, p.ID, later.ID))
	_, err = db.GetClosingRule(ctx, p.ID, later.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, db.DeleteClosingRule(ctx, p.ID, later.ID))
}

func TestSeedHoliday_Once(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedPremises(t, db, "acme", "Europe/Zurich")
	christmas := tz.Date{Year: 2026, Month: time.December, Day: 25}

	rule, err := HolidayRule(p.ID, "Europe/Zurich", christmas, "Christmas")
	require.NoError(t, err)
	assert.True(t, rule.Start.Equal(time.Date(2026, 12, 24, 23, 0, 0, 0, time.UTC)))
	assert.True(t, rule.End.Equal(time.Date(2026, 12, 25, 23, 0, 0, 0, time.UTC)))

	added, err := db.SeedHoliday(ctx, christmas, rule)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotZero(t, rule.ID)

	again, err := HolidayRule(p.ID, "Europe/Zurich", christmas, "Christmas")
	require.NoError(t, err)
	added, err = db.SeedHoliday(ctx, christmas, again)
	require.NoError(t, err)
	assert.False(t, added)

	rules, err := db.ListClosingRules(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestSyncPremisesFromConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stale := seedPremises(t, db, "stale", "UTC")

	cfg := &config.PremisesCatalog{
		Premises: []config.PremisesConfig{
			{
				ID: 10, Slug: "acme", Name: "Acme", Timezone: "Europe/Zurich", IsActive: true,
				DefaultHours: &config.HoursConfig{
					Opens: "09:00", Shuts: "18:00", BreakStart: "12:00", BreakEnd: "13:00", DaysOff: []int{6, 7},
				},
			},
		},
		Holidays: []config.HolidayConfig{{Date: "2026-12-25", Name: "Christmas"}},
	}
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))

	hours, err := db.ListOpeningHours(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hours, 10)
	assert.Equal(t, clock.MustNew(9, 0), hours[0].Opens)
	assert.Equal(t, clock.MustNew(12, 0), hours[0].Shuts)
	assert.Equal(t, clock.MustNew(13, 0), hours[1].Opens)

	rules, err := db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Christmas", rules[0].Reason)

	got, err := db.GetPremises(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// edited hours are not overwritten on the next sync
	require.NoError(t, db.ReplaceOpeningHours(ctx, 10, []model.OpeningHours{
		{Weekday: model.Sunday, Opens: clock.MustNew(10, 0), Shuts: clock.MustNew(14, 0)},
	}))
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	hours, err = db.ListOpeningHours(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, model.Sunday, hours[0].Weekday)

	rules, err = db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestHoursFromConfig_NoBreak(t *testing.T) {
	hours, err := HoursFromConfig(&config.HoursConfig{Opens: "08:00", Shuts: "16:30", DaysOff: []int{7}})
	require.NoError(t, err)
	require.Len(t, hours, 6)
	for _, h := range hours {
		assert.NotEqual(t, model.Sunday, h.Weekday)
		assert.Equal(t, clock.MustNew(16, 30), h.Shuts)
	}
}

func acmeCatalog() *config.PremisesCatalog {
	return &config.PremisesCatalog{
		Premises: []config.PremisesConfig{
			{
				ID: 10, Slug: "acme", Name: "Acme", Timezone: "Europe/Zurich", IsActive: true,
				DefaultHours: &config.HoursConfig{Opens: "09:00", Shuts: "18:00"},
			},
		},
		Holidays: []config.HolidayConfig{{Date: "2026-12-25", Name: "Christmas"}},
	}
}

func TestSync_ClosedWeekIsNotReseeded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cfg := acmeCatalog()

	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	hours, err := db.ListOpeningHours(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hours, 7)

	// every day closed
	require.NoError(t, db.ReplaceOpeningHours(ctx, 10, nil))
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))

	hours, err = db.ListOpeningHours(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, hours)
}

func TestSync_SeedsHoursForLegacyRowsOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Premises{ID: 10, Slug: "acme", Name: "Acme", Timezone: "Europe/Zurich", IsActive: true}
	require.NoError(t, db.UpsertPremises(ctx, p))
	require.NoError(t, db.InsertOpeningHours(ctx, &model.OpeningHours{
		PremisesID: 10, Weekday: model.Monday, Opens: clock.MustNew(7, 0), Shuts: clock.MustNew(8, 0),
	}))

	require.NoError(t, db.SyncPremisesFromConfig(ctx, acmeCatalog()))
	hours, err := db.ListOpeningHours(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hours, 1)

	var seeded bool
	require.NoError(t, db.GetContext(ctx, &seeded, `SELECT hours_seeded FROM premises WHERE id = 10`))
	assert.True(t, seeded)
}

func TestSync_HolidayEditsSurviveResync(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cfg := acmeCatalog()

	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	rules, err := db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	// an edited holiday is not duplicated
	edited := rules[0]
	edited.End = edited.End.Add(-6 * time.Hour)
	require.NoError(t, db.UpsertClosingRule(ctx, &edited))
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	rules, err = db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].End.Equal(edited.End))

	// a deleted holiday stays deleted
	require.NoError(t, db.DeleteClosingRule(ctx, 10, edited.ID))
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	rules, err = db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rules)

	// a newly configured holiday is still added
	cfg.Holidays = append(cfg.Holidays, config.HolidayConfig{Date: "2026-12-26", Name: "Boxing Day"})
	require.NoError(t, db.SyncPremisesFromConfig(ctx, cfg))
	rules, err = db.ListClosingRules(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Boxing Day", rules[0].Reason)
}
