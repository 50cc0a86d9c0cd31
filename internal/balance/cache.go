package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const cacheTTL = 5 * time.Minute

// Cache keeps computed balance summaries in Redis. All methods tolerate
// Redis being down: reads report a miss and writes are dropped, with a
// log line either way.
type Cache struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewCache creates a balance cache. client may be nil to disable caching
// entirely.
func NewCache(client *redis.Client, log *logrus.Logger) *Cache {
	return &Cache{client: client, log: log}
}

func userKey(userID int64) string {
	return fmt.Sprintf("balance:user:%d", userID)
}

func groupKey(groupID int64) string {
	return fmt.Sprintf("balance:group:%d", groupID)
}

// Get returns the cached summary for the key, or nil on a miss.
func (c *Cache) Get(ctx context.Context, key string) *Summary {
	if c.client == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Warn("balance cache read failed")
		}
		return nil
	}

	s := &Summary{}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("balance cache entry corrupt")
		return nil
	}
	return s
}

// Set stores a summary under the key.
func (c *Cache) Set(ctx context.Context, key string, s *Summary) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(s)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("balance cache encode failed")
		return
	}

	if err := c.client.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("balance cache write failed")
	}
}

// InvalidateExpense drops the summaries an expense mutation made stale:
// the group's summary when the expense belongs to one, and every
// participant's personal summary.
func (c *Cache) InvalidateExpense(ctx context.Context, groupID *int64, userIDs []int64) {
	if c.client == nil {
		return
	}

	keys := make([]string, 0, len(userIDs)+1)
	if groupID != nil {
		keys = append(keys, groupKey(*groupID))
	}
	for _, id := range userIDs {
		keys = append(keys, userKey(id))
	}
	if len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("balance cache invalidation failed")
	}
}
