package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is used when no redis url is configured.
type MemoryCache struct {
	mu    sync.Mutex
	rows  map[string]memoryEntry
	nowFn func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{rows: map[string]memoryEntry{}, nowFn: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rows[key]
	if !ok {
		return "", false, nil
	}
	if !row.expiresAt.IsZero() && c.nowFn().After(row.expiresAt) {
		delete(c.rows, key)
		return "", false, nil
	}
	return row.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := memoryEntry{value: value}
	if ttl > 0 {
		row.expiresAt = c.nowFn().Add(ttl)
	}
	c.rows[key] = row
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.rows, k)
	}
	return nil
}
