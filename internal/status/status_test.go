package status

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"openinghours/internal/cache"
	"openinghours/internal/clock"
	"openinghours/internal/db"
	"openinghours/internal/model"
	"openinghours/internal/slots"
	"openinghours/internal/tz"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func zurich(t *testing.T) *time.Location {
	t.Helper()
	loc, err := tz.Location("Europe/Zurich")
	require.NoError(t, err)
	return loc
}

// 2026-01-05 is a Monday.
func monday(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2026, 1, 5, hour, minute, 0, 0, loc)
}

func TestEvaluate_ClosingRuleOverrides(t *testing.T) {
	loc := zurich(t)
	hours := []model.OpeningHours{
		{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
	}
	rules := []model.ClosingRule{
		{ID: 5, Start: monday(loc, 10, 0), End: monday(loc, 12, 0), Reason: "Inventory"},
	}

	st := Evaluate(monday(loc, 11, 0), loc, hours, rules)
	assert.False(t, st.Open)
	assert.Equal(t, ReasonClosingRule, st.Reason)
	require.NotNil(t, st.Rule)
	assert.Equal(t, int64(5), st.Rule.ID)

	st = Evaluate(monday(loc, 9, 30), loc, hours, rules)
	assert.True(t, st.Open)
	assert.Equal(t, ReasonOpeningHours, st.Reason)
	assert.Equal(t, model.Monday, st.Weekday)
	assert.Equal(t, "2026-01-05 09:30", st.Local)

	// the rule's end is exclusive
	assert.True(t, Evaluate(monday(loc, 12, 0), loc, hours, rules).Open)
	assert.False(t, Evaluate(monday(loc, 10, 0), loc, hours, rules).Open)
}

func TestEvaluate_Boundaries(t *testing.T) {
	loc := zurich(t)
	hours := []model.OpeningHours{
		{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
	}

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{name: "at opening", at: monday(loc, 9, 0), open: true},
		{name: "just before opening", at: monday(loc, 8, 59), open: false},
		{name: "last minute", at: monday(loc, 16, 59).Add(59 * time.Second), open: true},
		{name: "at closing", at: monday(loc, 17, 0), open: false},
		{name: "other weekday", at: monday(loc, 10, 0).AddDate(0, 0, 1), open: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, Evaluate(tt.at, loc, hours, nil).Open)
		})
	}
}

func TestEvaluate_UsesPremisesTimezone(t *testing.T) {
	loc := zurich(t)
	hours := []model.OpeningHours{
		{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
	}

	// 08:30 UTC is 09:30 in Zurich
	at := time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)
	assert.True(t, Evaluate(at, loc, hours, nil).Open)
	assert.False(t, Evaluate(at, time.UTC, hours, nil).Open)

	// Sunday 23:30 UTC is already Monday 00:30 in Zurich
	night := []model.OpeningHours{{Weekday: model.Monday, Opens: clock.MustNew(0, 0), Shuts: clock.MustNew(1, 0)}}
	assert.True(t, Evaluate(time.Date(2026, 1, 4, 23, 30, 0, 0, time.UTC), loc, night, nil).Open)
}

func TestEvaluate_InvertedIntervalNeverMatches(t *testing.T) {
	loc := zurich(t)
	hours := []model.OpeningHours{
		{Weekday: model.Monday, Opens: clock.MustNew(22, 0), Shuts: clock.MustNew(2, 0)},
	}
	assert.False(t, Evaluate(monday(loc, 23, 0), loc, hours, nil).Open)
	assert.False(t, Evaluate(monday(loc, 1, 0), loc, hours, nil).Open)
}

func TestEvaluate_SplitShift(t *testing.T) {
	loc := zurich(t)
	hours := []model.OpeningHours{
		{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(12, 0)},
		{Weekday: model.Monday, Opens: clock.MustNew(13, 0), Shuts: clock.MustNew(18, 0)},
	}
	assert.True(t, Evaluate(monday(loc, 11, 59), loc, hours, nil).Open)
	assert.False(t, Evaluate(monday(loc, 12, 30), loc, hours, nil).Open)

	st := Evaluate(monday(loc, 13, 0), loc, hours, nil)
	require.True(t, st.Open)
	assert.Equal(t, clock.MustNew(13, 0), st.Interval.Opens)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetPremises(ctx context.Context, id int64) (*model.Premises, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Premises), args.Error(1)
}

func (m *mockStore) ListOpeningHours(ctx context.Context, premisesID int64) ([]model.OpeningHours, error) {
	args := m.Called(ctx, premisesID)
	return args.Get(0).([]model.OpeningHours), args.Error(1)
}

func (m *mockStore) ListClosingRules(ctx context.Context, premisesID int64) ([]model.ClosingRule, error) {
	args := m.Called(ctx, premisesID)
	return args.Get(0).([]model.ClosingRule), args.Error(1)
}

func TestEvaluator_CachesSchedule(t *testing.T) {
	logger := zerolog.New(io.Discard)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sc := cache.NewScheduleCache(client, time.Minute, &logger)

	loc := zurich(t)
	store := new(mockStore)
	store.On("GetPremises", mock.Anything, int64(1)).
		Return(&model.Premises{ID: 1, Slug: "acme", Timezone: "Europe/Zurich"}, nil).Once()
	store.On("ListOpeningHours", mock.Anything, int64(1)).
		Return([]model.OpeningHours{{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)}}, nil).Once()
	store.On("ListClosingRules", mock.Anything, int64(1)).
		Return([]model.ClosingRule{{ID: 5, Start: monday(loc, 10, 0), End: monday(loc, 12, 0)}}, nil).Once()

	ev := NewEvaluator(store, sc, &logger)
	ctx := context.Background()

	open, err := ev.IsOpenAt(ctx, 1, monday(loc, 9, 30))
	require.NoError(t, err)
	assert.True(t, open)

	// second call is served from redis
	open, err = ev.IsOpenAt(ctx, 1, monday(loc, 11, 0))
	require.NoError(t, err)
	assert.False(t, open)

	store.AssertExpectations(t)

	require.NoError(t, sc.Invalidate(ctx, 1))
	store.On("GetPremises", mock.Anything, int64(1)).Return(nil, db.ErrNotFound).Once()
	_, err = ev.Status(ctx, 1, monday(loc, 9, 30))
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestEvaluator_UnknownTimezone(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := new(mockStore)
	store.On("GetPremises", mock.Anything, int64(2)).Return(&model.Premises{ID: 2, Timezone: "Local"}, nil)
	store.On("ListOpeningHours", mock.Anything, int64(2)).Return([]model.OpeningHours{}, nil)
	store.On("ListClosingRules", mock.Anything, int64(2)).Return([]model.ClosingRule{}, nil)

	ev := NewEvaluator(store, nil, &logger)
	_, err := ev.Status(context.Background(), 2, time.Now())
	var tzErr *tz.UnknownTimezoneError
	assert.True(t, errors.As(err, &tzErr))
}

// racyStore runs duringLoad once, after hours are read and before the
// evaluator caches what it loaded.
type racyStore struct {
	premises   model.Premises
	hours      []model.OpeningHours
	duringLoad func()
}

func (s *racyStore) GetPremises(ctx context.Context, id int64) (*model.Premises, error) {
	p := s.premises
	return &p, nil
}

func (s *racyStore) ListOpeningHours(ctx context.Context, premisesID int64) ([]model.OpeningHours, error) {
	return append([]model.OpeningHours(nil), s.hours...), nil
}

func (s *racyStore) ReplaceOpeningHours(ctx context.Context, premisesID int64, hours []model.OpeningHours) error {
	s.hours = append([]model.OpeningHours(nil), hours...)
	return nil
}

func (s *racyStore) ListClosingRules(ctx context.Context, premisesID int64) ([]model.ClosingRule, error) {
	if f := s.duringLoad; f != nil {
		s.duringLoad = nil
		f()
	}
	return nil, nil
}

func TestEvaluator_SaveDuringLoadIsNotMasked(t *testing.T) {
	logger := zerolog.New(io.Discard)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sc := cache.NewScheduleCache(client, time.Hour, &logger)

	loc := zurich(t)
	ctx := context.Background()
	store := &racyStore{
		premises: model.Premises{ID: 1, Slug: "acme", Timezone: "Europe/Zurich", IsActive: true},
		hours: []model.OpeningHours{
			{Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
		},
	}
	engine := slots.NewEngine(store, clock.NewCodec(clock.Format24), sc, &logger)
	store.duringLoad = func() {
		// every day closed
		require.NoError(t, engine.Save(ctx, 1, nil))
	}

	ev := NewEvaluator(store, sc, &logger)

	// this load read the old hours before the save committed
	open, err := ev.IsOpenAt(ctx, 1, monday(loc, 10, 0))
	require.NoError(t, err)
	assert.True(t, open)
	assert.False(t, mr.Exists("openinghours:schedule:1"))

	open, err = ev.IsOpenAt(ctx, 1, monday(loc, 10, 0))
	require.NoError(t, err)
	assert.False(t, open)
	assert.True(t, mr.Exists("openinghours:schedule:1"))
}
