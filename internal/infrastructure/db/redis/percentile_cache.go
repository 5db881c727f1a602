package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const percentileTTL = 6 * time.Hour

// PercentileCache keeps the last known community percentile per subscriber so
// a degraded lookup can serve it instead of waiting on the backend. Cache
// failures are logged and swallowed: the caller has a constant default.
// Key format: percentile:<subscriber_id>
type PercentileCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewPercentileCache creates a PercentileCache wrapping the given Redis client.
func NewPercentileCache(client *redis.Client, log zerolog.Logger) *PercentileCache {
	return &PercentileCache{client: client, log: log}
}

// Get returns the cached percentile and whether one was present.
func (c *PercentileCache) Get(ctx context.Context, subscriberID string) (float64, bool) {
	raw, err := c.client.Get(ctx, c.key(subscriberID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("percentile cache read failed")
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Set stores the percentile (expires after percentileTTL).
func (c *PercentileCache) Set(ctx context.Context, subscriberID string, value float64) {
	err := c.client.Set(ctx, c.key(subscriberID), strconv.FormatFloat(value, 'f', -1, 64), percentileTTL).Err()
	if err != nil {
		c.log.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("percentile cache write failed")
	}
}

func (c *PercentileCache) key(subscriberID string) string {
	return fmt.Sprintf("percentile:%s", subscriberID)
}
