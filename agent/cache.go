package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRegistry fronts a Registry with a Redis-backed cache keyed by
// (tenant_id, role, department_id), honoring the >=5 minute
// cacheability the collaborator interface allows. A Redis error
// degrades to an uncached lookup rather than failing the request.
type CachedRegistry struct {
	inner  *Registry
	client *redis.Client
	ttl    time.Duration
	prefix string

	hits   int64
	misses int64
}

// NewCachedRegistry wraps inner with a Redis cache. client may be nil,
// in which case every call falls through to inner uncached.
func NewCachedRegistry(inner *Registry, client *redis.Client, ttl time.Duration) *CachedRegistry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRegistry{
		inner:  inner,
		client: client,
		ttl:    ttl,
		prefix: "hectorflow:agents:",
	}
}

func (c *CachedRegistry) key(tenantID string, role Role, departmentID string) string {
	return fmt.Sprintf("%s%s:%s:%s", c.prefix, tenantID, role, departmentID)
}

func (c *CachedRegistry) GetVisibleAgents(ctx context.Context, tenantID string, role Role, departmentID string) ([]Descriptor, error) {
	if c.client == nil {
		return c.inner.GetVisibleAgents(ctx, tenantID, role, departmentID)
	}

	key := c.key(tenantID, role, departmentID)
	if cached, ok := c.get(ctx, key); ok {
		return cached, nil
	}

	agents, err := c.inner.GetVisibleAgents(ctx, tenantID, role, departmentID)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, agents)
	return agents, nil
}

func (c *CachedRegistry) get(ctx context.Context, key string) ([]Descriptor, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	var agents []Descriptor
	if err := json.Unmarshal([]byte(val), &agents); err != nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return agents, true
}

func (c *CachedRegistry) set(ctx context.Context, key string, agents []Descriptor) {
	data, err := json.Marshal(agents)
	if err != nil {
		return
	}
	// Best-effort: a failed write just means the next call misses again.
	c.client.Set(ctx, key, data, c.ttl)
}

// Stats reports cache hit/miss counters for monitoring.
func (c *CachedRegistry) Stats() map[string]int64 {
	return map[string]int64{
		"hits":   atomic.LoadInt64(&c.hits),
		"misses": atomic.LoadInt64(&c.misses),
	}
}
