package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActivityCache records when users send messages: a last-active marker and an
// hour-of-day histogram used to decide whether a user is active during work hours
type ActivityCache interface {
	Touch(ctx context.Context, userID string, at time.Time) error
	LastActive(ctx context.Context, userID string) (time.Time, bool, error)
	HourHistogram(ctx context.Context, userID string) (map[int]int64, error)
}

type activityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewActivityCache(client *redis.Client, ttl time.Duration) ActivityCache {
	return &activityCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *activityCache) lastActiveKey(userID string) string {
	return fmt.Sprintf("user:%s:last-active", userID)
}

func (c *activityCache) hoursKey(userID string) string {
	return fmt.Sprintf("user:%s:active-hours", userID)
}

// Touch marks userID active at the given local time
func (c *activityCache) Touch(ctx context.Context, userID string, at time.Time) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.lastActiveKey(userID), at.UTC().Format(time.RFC3339Nano), c.ttl)
	pipe.HIncrBy(ctx, c.hoursKey(userID), strconv.Itoa(at.Hour()), 1)
	pipe.Expire(ctx, c.hoursKey(userID), c.ttl)
	_, err := pipe.Exec(ctx)
	return redisErr("activity touch", err)
}

func (c *activityCache) LastActive(ctx context.Context, userID string) (time.Time, bool, error) {
	data, err := c.client.Get(ctx, c.lastActiveKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, redisErr("activity last-active", err)
	}
	t, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (c *activityCache) HourHistogram(ctx context.Context, userID string) (map[int]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.hoursKey(userID)).Result()
	if err != nil {
		return nil, redisErr("activity hours", err)
	}
	hist := make(map[int]int64, len(raw))
	for h, v := range raw {
		hour, err := strconv.Atoi(h)
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		hist[hour] = n
	}
	return hist, nil
}
