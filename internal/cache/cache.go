package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte cache with per-entry TTL shared by request-scoped components
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// MemoryStore provides thread-safe in-process caching with TTL
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a store that sweeps expired items every cleanupInterval.
// A non-positive interval disables the sweeper; expired items are still never returned.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		items: make(map[string]*CacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go store.cleanup(cleanupInterval)
	}

	return store
}

// cleanup removes expired items periodically
func (c *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for key, item := range c.items {
				if item.IsExpired(now) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Get retrieves an item from the cache
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if item.IsExpired(c.now()) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return item.Data, true, nil
}

// Set stores an item in the cache. A non-positive ttl never expires.
func (c *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	item := &CacheItem{Data: append([]byte(nil), data...)}
	if ttl > 0 {
		item.ExpiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Delete removes an item from the cache
func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Clear removes all items from the cache
func (c *MemoryStore) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*CacheItem)
	c.mu.Unlock()
}

// Size returns the number of items in the cache
func (c *MemoryStore) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *MemoryStore) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	totalItems := len(c.items)
	expiredItems := 0
	for _, item := range c.items {
		if item.IsExpired(now) {
			expiredItems++
		}
	}

	return map[string]any{
		"backend":       "memory",
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
	}
}

// Close stops the cleanup goroutine
func (c *MemoryStore) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}
