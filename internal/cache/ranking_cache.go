package cache

import (
	"context"
	"fmt"
	"kinship/internal/model"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RankingCache keeps each user's last computed contact ranking in Redis. The ZSET is scored
// by rank position so equal scores keep the order they were stored in; a HASH holds the scores.
type RankingCache interface {
	// Store replaces the ranking; scores must already be in rank order.
	Store(ctx context.Context, userID string, scores []model.ContactScore) error
	Top(ctx context.Context, userID string, limit int) ([]model.ContactScore, error)
	Rank(ctx context.Context, userID, contactID string) (int64, error)
}

type rankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRankingCache creates a ranking cache whose keys expire after ttl
func NewRankingCache(client *redis.Client, ttl time.Duration) RankingCache {
	return &rankingCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *rankingCache) key(userID string) string {
	return fmt.Sprintf("user:%s:ranking", userID)
}

func (c *rankingCache) scoresKey(userID string) string {
	return fmt.Sprintf("user:%s:ranking:scores", userID)
}

// Store replaces the whole ranking atomically
func (c *rankingCache) Store(ctx context.Context, userID string, scores []model.ContactScore) error {
	key, scoresKey := c.key(userID), c.scoresKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, scoresKey)
		if len(scores) == 0 {
			return nil
		}
		members := make([]redis.Z, len(scores))
		values := make(map[string]any, len(scores))
		for i, s := range scores {
			members[i] = redis.Z{Score: float64(i), Member: s.UserID}
			values[s.UserID] = strconv.FormatFloat(s.Score, 'g', -1, 64)
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.HSet(ctx, scoresKey, values)
		pipe.Expire(ctx, key, c.ttl)
		pipe.Expire(ctx, scoresKey, c.ttl)
		return nil
	})
	return redisErr("ranking store", err)
}

func (c *rankingCache) Top(ctx context.Context, userID string, limit int) ([]model.ContactScore, error) {
	ids, err := c.client.ZRange(ctx, c.key(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, redisErr("ranking top", err)
	}
	if len(ids) == 0 {
		return []model.ContactScore{}, nil
	}
	vals, err := c.client.HMGet(ctx, c.scoresKey(userID), ids...).Result()
	if err != nil {
		return nil, redisErr("ranking scores", err)
	}

	scores := make([]model.ContactScore, len(ids))
	for i, id := range ids {
		scores[i] = model.ContactScore{UserID: id}
		if v, ok := vals[i].(string); ok {
			scores[i].Score, _ = strconv.ParseFloat(v, 64)
		}
	}
	return scores, nil
}

// Rank is 1-indexed; -1 when the contact is not ranked
func (c *rankingCache) Rank(ctx context.Context, userID, contactID string) (int64, error) {
	rank, err := c.client.ZRank(ctx, c.key(userID), contactID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, redisErr("ranking rank", err)
	}
	return rank + 1, nil
}
