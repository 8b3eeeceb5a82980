// Package rediscache caches class reports in Redis as JSON.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
)

const reportKeyPrefix = "grader:report:" // String: grader:report:{classID} -> JSON ClassReport

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to the Redis server described by conf.
func NewClient(ctx context.Context, conf core.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// NewReportCache returns a ReportCache keeping reports for ttl (0 means no expiration).
func NewReportCache(client *redis.Client, ttl time.Duration) gradebook.ReportCache {
	return &reportCache{client: client, ttl: ttl}
}

func reportKey(classID string) string {
	return reportKeyPrefix + classID
}

func (c *reportCache) GetClassReport(ctx context.Context, classID string) (gradebook.ClassReport, bool, error) {
	data, err := c.client.Get(ctx, reportKey(classID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return gradebook.ClassReport{}, false, nil
		}
		return gradebook.ClassReport{}, false, errors.Wrap(err, "getting report")
	}

	var rpt gradebook.ClassReport
	if err = json.Unmarshal(data, &rpt); err != nil {
		return gradebook.ClassReport{}, false, errors.Wrap(err, "decoding report")
	}
	return rpt, true, nil
}

func (c *reportCache) SetClassReport(ctx context.Context, rpt gradebook.ClassReport) error {
	data, err := json.Marshal(rpt)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	if err = c.client.Set(ctx, reportKey(rpt.ClassID), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "setting report")
	}
	return nil
}

func (c *reportCache) Invalidate(ctx context.Context, classID string) error {
	if err := c.client.Del(ctx, reportKey(classID)).Err(); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return nil
}
