package session

import (
	"context"
	"sync"
	"time"
)

// entry is one cached resolution of a token. A failed resolution is cached
// too: a fetch that came back 401 or unreachable is final for this entry
// until it goes stale or is invalidated, never retried implicitly.
type entry struct {
	User      *User     `json:"user"`
	FetchedAt time.Time `json:"fetched_at"`
	Failed    bool      `json:"failed"`
}

// Cache stores token resolutions. Implementations must treat all operations
// as idempotent; concurrent invalidations of the same token are safe.
type Cache interface {
	Get(ctx context.Context, token string) (*entry, error)
	Set(ctx context.Context, token string, e *entry) error
	Delete(ctx context.Context, token string) error
}

// memoryCache is the single-replica cache, one entry per live token.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryCache creates an in-process session cache.
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]*entry)}
}

func (c *memoryCache) Get(_ context.Context, token string) (*entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[token]
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (c *memoryCache) Set(_ context.Context, token string, e *entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = e
	return nil
}

func (c *memoryCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
	return nil
}
