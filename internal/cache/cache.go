// Package cache keeps a premises' loaded schedule in Redis between requests.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"openinghours/internal/metrics"
	"openinghours/internal/model"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Schedule is everything the evaluator needs for one premises.
type Schedule struct {
	Premises model.Premises       `json:"premises"`
	Hours    []model.OpeningHours `json:"hours"`
	Rules    []model.ClosingRule  `json:"rules"`
}

// ScheduleCache is a cache-aside store of schedules keyed by premises ID.
// A nil *ScheduleCache or a zero TTL disables caching.
type ScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewScheduleCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *ScheduleCache {
	return &ScheduleCache{client: client, ttl: ttl, logger: logger}
}

func key(premisesID int64) string {
	return fmt.Sprintf("openinghours:schedule:%d", premisesID)
}

func genKey(premisesID int64) string {
	return fmt.Sprintf("openinghours:schedule:%d:gen", premisesID)
}

func (c *ScheduleCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached schedule and whether it was found.
// Redis failures are logged and reported as a miss.
func (c *ScheduleCache) Get(ctx context.Context, premisesID int64) (*Schedule, bool) {
	if !c.enabled() {
		return nil, false
	}
	val, err := c.client.Get(ctx, key(premisesID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Int64("premises_id", premisesID).Msg("Schedule cache read failed")
		}
		metrics.IncScheduleCache("miss")
		return nil, false
	}

	var s Schedule
	if err := json.Unmarshal(val, &s); err != nil {
		c.logger.Warn().Err(err).Int64("premises_id", premisesID).Msg("Schedule cache entry corrupt")
		metrics.IncScheduleCache("miss")
		return nil, false
	}
	metrics.IncScheduleCache("hit")
	return &s, true
}

// Generation returns the invalidation counter of a premises. Read it before
// loading a schedule from the store and pass it to Set. ok is false when the
// cache is disabled or unreachable, in which case nothing should be stored.
func (c *ScheduleCache) Generation(ctx context.Context, premisesID int64) (gen int64, ok bool) {
	if !c.enabled() {
		return 0, false
	}
	gen, err := c.client.Get(ctx, genKey(premisesID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn().Err(err).Int64("premises_id", premisesID).Msg("Schedule cache generation read failed")
		return 0, false
	}
	return gen, true
}

// Set stores a schedule for the configured TTL unless the premises was
// invalidated after gen was read. A schedule loaded before a concurrent
// write is therefore never cached.
func (c *ScheduleCache) Set(ctx context.Context, s *Schedule, gen int64) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}

	id := s.Premises.ID
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey(id)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), data, c.ttl)
			return nil
		})
		return err
	}, genKey(id))

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		metrics.IncScheduleCache("stale")
		c.logger.Debug().Int64("premises_id", id).Msg("Schedule changed while loading, not cached")
	default:
		c.logger.Warn().Err(err).Int64("premises_id", id).Msg("Schedule cache write failed")
	}
}

var errStale = errors.New("schedule generation changed")

// Invalidate drops the cached schedule of a premises and bumps its
// generation so in-flight loads are not cached.
func (c *ScheduleCache) Invalidate(ctx context.Context, premisesID int64) error {
	if !c.enabled() {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(premisesID))
		pipe.Del(ctx, key(premisesID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate schedule %d: %w", premisesID, err)
	}
	return nil
}
