package cache

import (
	"context"
	"fmt"
	"kinship/internal/model"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayBucketLayout formats the UTC calendar day a report belongs to.
const DayBucketLayout = "2006-01-02"

// ReportLedger stores report records per reported user in a Redis ZSET scored by report time.
// The member is reporter:day, so ZADD NX makes same-day duplicates a no-op.
type ReportLedger interface {
	// Record returns false when the reporter already reported this user on the same UTC day.
	Record(ctx context.Context, rec model.ReportRecord) (bool, error)
	Counts(ctx context.Context, userID string, now time.Time) (model.ReportCounts, error)
}

type reportLedger struct {
	client  *redis.Client
	daily   time.Duration
	monthly time.Duration
	logger  *slog.Logger
}

// NewReportLedger creates a ledger counting over the given rolling windows
func NewReportLedger(client *redis.Client, daily, monthly time.Duration, logger *slog.Logger) ReportLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportLedger{
		client:  client,
		daily:   daily,
		monthly: monthly,
		logger:  logger,
	}
}

func (c *reportLedger) key(userID string) string {
	return fmt.Sprintf("reports:%s", userID)
}

// DayBucket returns the UTC calendar day of t
func DayBucket(t time.Time) string {
	return t.UTC().Format(DayBucketLayout)
}

func (c *reportLedger) Record(ctx context.Context, rec model.ReportRecord) (bool, error) {
	key := c.key(rec.ReportedUserID)
	bucket := rec.DayBucket
	if bucket == "" {
		bucket = DayBucket(rec.CreatedAt)
	}

	added, err := c.client.ZAddNX(ctx, key, redis.Z{
		Score:  float64(rec.CreatedAt.Unix()),
		Member: rec.ReporterID + ":" + bucket,
	}).Result()
	if err != nil {
		return false, redisErr("report record", err)
	}

	// records older than the longest window never count again
	cutoff := rec.CreatedAt.Add(-c.monthly).Unix()
	pipe := c.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, c.monthly)
	if _, err := pipe.Exec(ctx); err != nil {
		// the record is stored; the next report retries the trim
		c.logger.Warn("report ledger trim failed", "userId", rec.ReportedUserID, "error", err)
	}
	return added == 1, nil
}

// Counts returns the reports dated within each window ending at now. Reports dated after now
// are not counted.
func (c *reportLedger) Counts(ctx context.Context, userID string, now time.Time) (model.ReportCounts, error) {
	key := c.key(userID)
	upper := strconv.FormatInt(now.Unix(), 10)
	pipe := c.client.Pipeline()
	daily := pipe.ZCount(ctx, key, strconv.FormatInt(now.Add(-c.daily).Unix(), 10), upper)
	monthly := pipe.ZCount(ctx, key, strconv.FormatInt(now.Add(-c.monthly).Unix(), 10), upper)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.ReportCounts{}, redisErr("report counts", err)
	}
	return model.ReportCounts{
		Daily:   daily.Val(),
		Monthly: monthly.Val(),
	}, nil
}
