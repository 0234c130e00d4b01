package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounts caches per-user unread notification counts in Redis with a
// short TTL so the badge endpoint does not hit Postgres on every poll.
type UnreadCounts struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUnreadCounts(client *redis.Client, ttl time.Duration) *UnreadCounts {
	return &UnreadCounts{client: client, ttl: ttl}
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// Get returns the cached count; ok is false on miss or Redis failure.
func (c *UnreadCounts) Get(ctx context.Context, userID string) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	count, err := c.client.Get(ctx, unreadKey(userID)).Int()
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set stores the count under the configured TTL. Failures are ignored; the
// cache is advisory.
func (c *UnreadCounts) Set(ctx context.Context, userID string, count int) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, unreadKey(userID), count, c.ttl).Err()
}

// Invalidate drops the cached count after any write that changes it.
func (c *UnreadCounts) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, unreadKey(userID)).Err()
}
