package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"iot-ingest-backend/internal/db"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultKeyPrefix = "latest_reading:"
)

var ErrCacheMiss = errors.New("cache miss")

// KVStore is the slice of Redis the cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	// SetNewer stores value unless the stored reading ranks above
	// (recordNumber, timestamp). The check and the write are atomic.
	SetNewer(ctx context.Context, key, value string, recordNumber, timestamp int64, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// setNewerScript keeps the stored reading when it has a higher record number,
// or the same record number and a later timestamp. Unparseable entries are
// overwritten.
var setNewerScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, stored = pcall(cjson.decode, current)
	if ok and type(stored) == 'table' then
		local rn, ts = tonumber(stored['recordNumber']), tonumber(stored['timestamp'])
		local nrn, nts = tonumber(ARGV[2]), tonumber(ARGV[3])
		if rn and ts and (rn > nrn or (rn == nrn and ts > nts)) then
			return 0
		end
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
return 1
`)

type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) SetNewer(ctx context.Context, key, value string, recordNumber, timestamp int64, ttl time.Duration) error {
	return setNewerScript.Run(ctx, r.client, []string{key}, value, recordNumber, timestamp, ttl.Milliseconds()).Err()
}

func (r *RedisKVStore) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

type Config struct {
	KV        KVStore
	TTL       time.Duration
	KeyPrefix string
}

// RedisCache stores readings as JSON with a TTL.
type RedisCache struct {
	kv     KVStore
	ttl    time.Duration
	prefix string
}

func NewRedisCache(cfg Config) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{kv: cfg.KV, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) key(deviceID string) string {
	return c.prefix + deviceID
}

func (c *RedisCache) Get(ctx context.Context, deviceID string) (*db.Reading, bool) {
	raw, err := c.kv.Get(ctx, c.key(deviceID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.ErrorContext(ctx, "Error reading cache", "device_id", deviceID, "error", err)
		}
		return nil, false
	}
	var reading db.Reading
	if err := json.Unmarshal([]byte(raw), &reading); err != nil {
		slog.ErrorContext(ctx, "Error parsing cached reading", "device_id", deviceID, "error", err)
		return nil, false
	}
	return &reading, true
}

func (c *RedisCache) Set(ctx context.Context, deviceID string, reading db.Reading) {
	raw, err := json.Marshal(reading)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshalling reading", "device_id", deviceID, "error", err)
		return
	}
	if err := c.kv.SetNewer(ctx, c.key(deviceID), string(raw), reading.RecordNumber, reading.Timestamp, c.ttl); err != nil {
		slog.ErrorContext(ctx, "Error writing cache", "device_id", deviceID, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, deviceID string) {
	if err := c.kv.Del(ctx, c.key(deviceID)); err != nil {
		slog.ErrorContext(ctx, "Error invalidating cache", "device_id", deviceID, "error", err)
	}
}
