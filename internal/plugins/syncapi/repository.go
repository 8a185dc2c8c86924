package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWorldClock keeps each campaign's world time in Redis. It satisfies
// the calendar's WorldClock so the calendar service can push its own time
// in the self and mixed integration modes.
type RedisWorldClock struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewRedisWorldClock creates a world clock backed by rdb.
func NewRedisWorldClock(rdb redis.Cmdable) *RedisWorldClock {
	return &RedisWorldClock{rdb: rdb, now: time.Now}
}

// WorldTime returns the stored world time. ok is false when the campaign
// has none yet.
func (c *RedisWorldClock) WorldTime(ctx context.Context, campaignID string) (int64, bool, error) {
	wt, err := c.Get(ctx, campaignID)
	if err != nil || wt == nil {
		return 0, false, err
	}
	return wt.Seconds, true, nil
}

// SetWorldTime stores seconds as the campaign's world time.
func (c *RedisWorldClock) SetWorldTime(ctx context.Context, campaignID string, seconds int64) error {
	_, err := c.Set(ctx, campaignID, seconds)
	return err
}

// Get returns the full stored world time, or nil, nil when none is stored.
func (c *RedisWorldClock) Get(ctx context.Context, campaignID string) (*WorldTime, error) {
	raw, err := c.rdb.Get(ctx, WorldTimeKey(campaignID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading world time: %w", err)
	}

	var stored storedWorldTime
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decoding world time: %w", err)
	}
	return &WorldTime{CampaignID: campaignID, Seconds: stored.Seconds, UpdatedAt: stored.UpdatedAt}, nil
}

// Set stores seconds and returns the stored world time.
func (c *RedisWorldClock) Set(ctx context.Context, campaignID string, seconds int64) (*WorldTime, error) {
	stored := storedWorldTime{Seconds: seconds, UpdatedAt: c.now().UTC()}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding world time: %w", err)
	}
	if err := c.rdb.Set(ctx, WorldTimeKey(campaignID), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("writing world time: %w", err)
	}
	return &WorldTime{CampaignID: campaignID, Seconds: seconds, UpdatedAt: stored.UpdatedAt}, nil
}
