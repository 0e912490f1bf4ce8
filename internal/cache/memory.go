package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache with per-entry TTL and a hard entry cap.
// When full, the entry closest to expiry is evicted. It backs deployments
// without Redis and keeps tests hermetic.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates a Memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
	}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonest()
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = memoryEntry{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// evictSoonest removes the entry nearest to expiry. Caller holds the lock.
func (c *Memory) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, entry := range c.entries {
		if victim == "" || entry.expiresAt.Before(soonest) {
			victim = key
			soonest = entry.expiresAt
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

var _ Cache = (*Memory)(nil)
