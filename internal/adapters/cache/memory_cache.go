package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the CacheRepository interface
type MemoryCache struct {
	entries     map[string]memoryEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]memoryEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache
}

// Get loads the value stored under key into out.
func (c *MemoryCache) Get(_ context.Context, key string, out any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	if err := decodeValue(entry.data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a cache entry
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Clear removes one entry, or every entry when key is empty.
func (c *MemoryCache) Clear(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" {
		c.entries = make(map[string]memoryEntry)
		return nil
	}
	delete(c.entries, key)
	return nil
}

// cleanup removes expired entries
func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}
	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
