package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript trims expired entries, checks the count against the limit,
// and records the new timestamp in one atomic round trip.
var recordScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count + 1 > limit then
	return {0, count}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return {1, count + 1}
`)

// RedisStore implements a sliding-window store over Redis sorted sets so
// limits hold across service instances.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed sliding-window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "ratelimit:"}
}

// RecordIfAllowed atomically checks and records via a Lua script.
func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, timestamp time.Time, window time.Duration, limit int) (bool, int64, error) {
	nowMicro := timestamp.UnixMicro()
	member := fmt.Sprintf("%d-%d", nowMicro, timestamp.Nanosecond())

	res, err := recordScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		nowMicro, window.Microseconds(), limit, member).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit redis record: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("ratelimit redis record: unexpected script result %v", res)
	}

	return res[0] == 1, res[1], nil
}

// Delete removes the given key from the store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("ratelimit redis delete: %w", err)
	}
	return nil
}
