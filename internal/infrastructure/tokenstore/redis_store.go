package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/donationsvc/domain"
)

// consumeScript deletes KEYS[1] only when it holds ARGV[1].
// Returns 0 when the key is absent, 1 on mismatch and 2 when consumed.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return 0
end
if v ~= ARGV[1] then
	return 1
end
redis.call("DEL", KEYS[1])
return 2
`)

// RedisStore implements domain.TokenStore on Redis. Expiry is enforced by
// Redis itself so an expired key can never be read.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed token store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

var _ domain.TokenStore = (*RedisStore)(nil)

// Put implements domain.TokenStore. An existing value is overwritten.
func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token store: ttl must be positive, got %s", ttl)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("token store: set %s: %w", key, err)
	}
	return nil
}

// Consume implements domain.TokenStore
func (s *RedisStore) Consume(ctx context.Context, key, expected string) (domain.ConsumeResult, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{key}, expected).Int()
	if err != nil {
		return domain.ConsumeAbsent, fmt.Errorf("token store: consume %s: %w", key, err)
	}
	switch n {
	case 2:
		return domain.ConsumeMatched, nil
	case 1:
		return domain.ConsumeMismatch, nil
	default:
		return domain.ConsumeAbsent, nil
	}
}

// Delete implements domain.TokenStore
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("token store: del %s: %w", key, err)
	}
	return nil
}

// Throttle implements domain.TokenStore. A zero window never throttles.
func (s *RedisStore) Throttle(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return true, 0, nil
	}
	ok, err := s.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("token store: throttle %s: %w", key, err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("token store: ttl %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}
