package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the fixed-window registry between instances. Window expiry
// is delegated to key TTLs, so it never needs sweeping.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

var _ Store = (*RedisStore)(nil)

// GET/SET/INCR in one script so a rejected check never increments.
var fixedWindow = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count == 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, limit - 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
if count >= limit then
  return {0, 0, ttl}
end
count = redis.call('INCR', KEYS[1])
return {1, limit - count, ttl}
`)

// Connect opens and pings a client.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, identifier string, p Policy) (Result, error) {
	key := s.prefix + ":" + identifier
	vals, err := fixedWindow.Run(ctx, s.client, []string{key}, p.MaxRequests, p.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("fixed window script for key %q: %w", key, err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("fixed window script for key %q: unexpected reply %v", key, vals)
	}
	return Result{
		Allowed:   vals[0] == 1,
		Remaining: int(vals[1]),
		ResetIn:   time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
