package cache

import (
	"context"
	"sync"

	"iot-ingest-backend/internal/db"
)

// Cache holds the latest reading per device id. Set never replaces a cached
// reading with an older one, so a read-through that raced an ingest cannot
// roll the entry back. Implementations never fail the caller; backend errors
// are logged and reported as a miss.
type Cache interface {
	Get(ctx context.Context, deviceID string) (*db.Reading, bool)
	Set(ctx context.Context, deviceID string, reading db.Reading)
	Delete(ctx context.Context, deviceID string)
}

type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]db.Reading
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: make(map[string]db.Reading),
	}
}

func (c *MemoryCache) Get(ctx context.Context, deviceID string) (*db.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reading, exists := c.store[deviceID]
	if !exists {
		return nil, false
	}
	return &reading, true
}

func (c *MemoryCache) Set(ctx context.Context, deviceID string, reading db.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.store[deviceID]; ok && newer(current, reading) {
		return
	}
	c.store[deviceID] = reading
}

// newer reports whether a ranks strictly above b: higher record number, then
// later timestamp.
func newer(a, b db.Reading) bool {
	if a.RecordNumber != b.RecordNumber {
		return a.RecordNumber > b.RecordNumber
	}
	return a.Timestamp > b.Timestamp
}

func (c *MemoryCache) Delete(ctx context.Context, deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, deviceID)
}
