package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found in cache")

// keyPrefix namespaces every key this service writes.
const keyPrefix = "tutor:"

// releaseScript deletes a lock only while it still holds the caller's token,
// so an expired and re-acquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache backs the model-list cache, the per-course analysis lock and
// the login attempt counters.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings; callers treat an error as "run without redis".
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// SetJSON stores a JSON-encoded value with expiration
func (r *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+key, data, expiration).Err()
}

// GetJSON decodes a cached value into dest, or returns ErrNotFound.
func (r *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

// TryLock takes an advisory lock that expires after ttl. ok is false when
// someone else holds it. The returned release func is a no-op once the lock
// has expired and been taken by another holder.
func (r *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = r.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{keyPrefix + key}, token).Err()
	}
	return release, true, nil
}

// CountAttempt increments a counter whose window starts at the first attempt.
func (r *RedisCache) CountAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = r.client.Expire(ctx, keyPrefix+key, window).Err()
	}
	return n, nil
}

// Block marks key as blocked for d.
func (r *RedisCache) Block(ctx context.Context, key string, d time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, "blocked", d).Err()
}

// BlockedFor reports the remaining block on key, zero when it is not blocked.
func (r *RedisCache) BlockedFor(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	switch {
	case ttl == -2: // missing
		return 0, nil
	case ttl < 0: // no expiry
		return time.Minute, nil
	}
	return ttl, nil
}

// Clear removes keys
func (r *RedisCache) Clear(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
