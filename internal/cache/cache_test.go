package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"openinghours/internal/clock"
	"openinghours/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ScheduleCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.New(io.Discard)
	return NewScheduleCache(client, ttl, &logger), mr
}

func sampleSchedule() *Schedule {
	return &Schedule{
		Premises: model.Premises{ID: 7, Slug: "acme", Timezone: "Europe/Zurich", IsActive: true},
		Hours: []model.OpeningHours{
			{ID: 1, PremisesID: 7, Weekday: model.Monday, Opens: clock.MustNew(9, 0), Shuts: clock.MustNew(17, 0)},
		},
		Rules: []model.ClosingRule{
			{
				ID: 3, PremisesID: 7,
				Start:  time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
				End:    time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
				Reason: "Inventory",
			},
		},
	}
}

func TestScheduleCache_SetGetInvalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	c.Set(ctx, sampleSchedule(), 0)
	assert.True(t, mr.Exists("openinghours:schedule:7"))

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "acme", got.Premises.Slug)
	require.Len(t, got.Hours, 1)
	assert.Equal(t, clock.MustNew(17, 0), got.Hours[0].Shuts)
	require.Len(t, got.Rules, 1)
	assert.True(t, got.Rules[0].Start.Equal(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)))

	require.NoError(t, c.Invalidate(ctx, 7))
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestScheduleCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, sampleSchedule(), 0)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestScheduleCache_Corrupt(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("openinghours:schedule:7", "{not json"))

	_, ok := c.Get(context.Background(), 7)
	assert.False(t, ok)
}

func TestScheduleCache_Disabled(t *testing.T) {
	var nilCache *ScheduleCache
	ctx := context.Background()

	nilCache.Set(ctx, sampleSchedule(), 0)
	_, ok := nilCache.Get(ctx, 7)
	assert.False(t, ok)
	_, ok = nilCache.Generation(ctx, 7)
	assert.False(t, ok)
	assert.NoError(t, nilCache.Invalidate(ctx, 7))

	c, mr := newTestCache(t, 0)
	c.Set(ctx, sampleSchedule(), 0)
	assert.False(t, mr.Exists("openinghours:schedule:7"))
}

func TestScheduleCache_InvalidateBumpsGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, ok := c.Generation(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Invalidate(ctx, 7))
	require.NoError(t, c.Invalidate(ctx, 7))

	gen, ok = c.Generation(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, int64(2), gen)
	assert.True(t, mr.Exists("openinghours:schedule:7:gen"))
}

func TestScheduleCache_SetSkipsStaleGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	// load started, then a write invalidated the premises
	gen, ok := c.Generation(ctx, 7)
	require.True(t, ok)
	require.NoError(t, c.Invalidate(ctx, 7))

	c.Set(ctx, sampleSchedule(), gen)
	assert.False(t, mr.Exists("openinghours:schedule:7"))
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok)

	// a load that started after the write is cached
	gen, ok = c.Generation(ctx, 7)
	require.True(t, ok)
	c.Set(ctx, sampleSchedule(), gen)
	assert.True(t, mr.Exists("openinghours:schedule:7"))
}
