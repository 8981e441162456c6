package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryClient implements Client with in-process maps. It backs tests
// and single-node deployments where running Redis is not worth it;
// semantics mirror the Redis driver, including descending-rank sorted
// set queries and glob pattern invalidation.
type MemoryClient struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	zsets   map[string]map[string]float64
}

// NewMemoryClient creates an empty in-memory cache client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		entries: make(map[string]memoryEntry),
		zsets:   make(map[string]map[string]float64),
	}
}

func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) ZAdd(_ context.Context, key, member string, score float64) error {
	c.mu.Lock()
	zset, ok := c.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		c.zsets[key] = zset
	}
	zset[member] = score
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) ZRem(_ context.Context, key, member string) error {
	c.mu.Lock()
	if zset, ok := c.zsets[key]; ok {
		delete(zset, member)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) ZRangeDesc(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.RLock()
	zset := c.zsets[key]
	type zmember struct {
		member string
		score  float64
	}
	members := make([]zmember, 0, len(zset))
	for member, score := range zset {
		members = append(members, zmember{member, score})
	}
	c.mu.RUnlock()

	// Descending score; ties break on reverse member order, matching
	// ZREVRANGE.
	sort.Slice(members, func(i, j int) bool {
		if members[i].score != members[j].score {
			return members[i].score > members[j].score
		}
		return members[i].member > members[j].member
	})

	if start < 0 {
		start = 0
	}
	if start >= int64(len(members)) {
		return nil, nil
	}
	if stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}

	out := make([]string, 0, stop-start+1)
	for _, m := range members[start : stop+1] {
		out = append(out, m.member)
	}
	return out, nil
}

func (c *MemoryClient) ZCard(_ context.Context, key string) (int64, error) {
	c.mu.RLock()
	n := int64(len(c.zsets[key]))
	c.mu.RUnlock()
	return n, nil
}

func (c *MemoryClient) InvalidatePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) Ping(_ context.Context) error { return nil }

func (c *MemoryClient) Close() error { return nil }
