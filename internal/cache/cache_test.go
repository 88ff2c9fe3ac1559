package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-ingest-backend/internal/db"
)

// fakeKVStore is an in-memory KVStore with TTL support.
type fakeKVStore struct {
	mu      sync.Mutex
	data    map[string]fakeKVItem
	failErr error
}

type fakeKVItem struct {
	value   string
	expires time.Time
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[string]fakeKVItem)}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	item, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
	return nil
}

func (f *fakeKVStore) SetNewer(ctx context.Context, key, value string, recordNumber, timestamp int64, ttl time.Duration) error {
	if raw, err := f.Get(ctx, key); err == nil {
		var stored db.Reading
		if json.Unmarshal([]byte(raw), &stored) == nil && newer(stored, db.Reading{RecordNumber: recordNumber, Timestamp: timestamp}) {
			return nil
		}
	}
	return f.Set(ctx, key, value, ttl)
}

func (f *fakeKVStore) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.data, key)
	return nil
}

func Test_Caches(t *testing.T) {
	reading := db.Reading{ID: 7, DeviceID: "dev-1", RecordNumber: 3, Timestamp: 1704067200000, Value: 10, Unit: "mg/L"}

	cases := []struct {
		name       string
		setupCache func() Cache
	}{
		{
			name:       "memory",
			setupCache: func() Cache { return NewMemoryCache() },
		},
		{
			name: "redis",
			setupCache: func() Cache {
				return NewRedisCache(Config{KV: newFakeKVStore()})
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := tt.setupCache()

			_, ok := c.Get(ctx, "dev-1")
			assert.False(t, ok)

			c.Set(ctx, "dev-1", reading)
			got, ok := c.Get(ctx, "dev-1")
			require.True(t, ok)
			assert.Equal(t, reading.RecordNumber, got.RecordNumber)
			assert.Equal(t, reading.Timestamp, got.Timestamp)
			assert.Equal(t, reading.Unit, got.Unit)

			c.Delete(ctx, "dev-1")
			_, ok = c.Get(ctx, "dev-1")
			assert.False(t, ok)
		})
	}
}

func Test_RedisCache_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(Config{KV: newFakeKVStore(), TTL: time.Millisecond})
	c.Set(ctx, "dev-1", db.Reading{RecordNumber: 1})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "dev-1")
	assert.False(t, ok)
}

func Test_RedisCache_BackendErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKVStore()
	c := NewRedisCache(Config{KV: kv, KeyPrefix: "test:"})
	c.Set(ctx, "dev-1", db.Reading{RecordNumber: 1})

	_, ok := kv.data["test:dev-1"]
	assert.True(t, ok)

	kv.failErr = errors.New("connection refused")
	_, ok = c.Get(ctx, "dev-1")
	assert.False(t, ok)
	c.Delete(ctx, "dev-1")
}

func Test_RedisCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKVStore()
	require.NoError(t, kv.Set(ctx, DefaultKeyPrefix+"dev-1", "not-a-json", 0))
	c := NewRedisCache(Config{KV: kv})
	_, ok := c.Get(ctx, "dev-1")
	assert.False(t, ok)
}

func Test_Caches_KeepNewest(t *testing.T) {
	cases := []struct {
		name       string
		setupCache func() Cache
	}{
		{name: "memory", setupCache: func() Cache { return NewMemoryCache() }},
		{name: "redis", setupCache: func() Cache { return NewRedisCache(Config{KV: newFakeKVStore()}) }},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := tt.setupCache()

			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 2, Timestamp: 2000})
			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 1, Timestamp: 9000})
			got, ok := c.Get(ctx, "dev-1")
			require.True(t, ok)
			assert.Equal(t, int64(2), got.RecordNumber)

			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 2, Timestamp: 3000})
			got, ok = c.Get(ctx, "dev-1")
			require.True(t, ok)
			assert.Equal(t, int64(3000), got.Timestamp)

			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 5, Timestamp: 100})
			got, ok = c.Get(ctx, "dev-1")
			require.True(t, ok)
			assert.Equal(t, int64(5), got.RecordNumber)

			c.Delete(ctx, "dev-1")
			c.Set(ctx, "dev-1", db.Reading{RecordNumber: 1, Timestamp: 1})
			got, ok = c.Get(ctx, "dev-1")
			require.True(t, ok)
			assert.Equal(t, int64(1), got.RecordNumber)
		})
	}
}

func Test_RedisCache_OverwritesCorruptEntry(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKVStore()
	require.NoError(t, kv.Set(ctx, DefaultKeyPrefix+"dev-1", "not-a-json", 0))
	c := NewRedisCache(Config{KV: kv})

	c.Set(ctx, "dev-1", db.Reading{RecordNumber: 1})
	got, ok := c.Get(ctx, "dev-1")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.RecordNumber)
}
