package timeclock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps recent alert-status evaluations in Redis so the live
// clock UI's poll loop does not recompute on every request.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache constructs the cache. A nil client disables caching.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(employeeID int64) string {
	return fmt.Sprintf("timeclock:status:%d", employeeID)
}

// Get returns a cached status when present. Cache errors are treated as
// misses; the caller recomputes.
func (c *StatusCache) Get(ctx context.Context, employeeID int64) (*AlertStatus, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, statusKey(employeeID)).Bytes()
	if err != nil {
		return nil, false
	}
	var status AlertStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, false
	}
	return &status, true
}

// Set stores the status for the configured TTL. Failures are ignored; the
// cache is an optimisation, not a source of truth.
func (c *StatusCache) Set(ctx context.Context, employeeID int64, status *AlertStatus) {
	if c == nil || c.client == nil || status == nil {
		return
	}
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, statusKey(employeeID), data, c.ttl).Err()
}

// Invalidate drops the cached status for one employee.
func (c *StatusCache) Invalidate(ctx context.Context, employeeID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, statusKey(employeeID)).Err()
}
