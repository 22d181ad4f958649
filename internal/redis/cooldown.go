package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore rate-limits order creation per client in Redis.
type CooldownStore struct {
	client *redis.Client
}

// NewCooldownStore creates a new CooldownStore.
func NewCooldownStore(client *redis.Client) *CooldownStore {
	return &CooldownStore{client: client}
}

// TryAcquire starts the cooldown window for a client. Returns true when no
// window was running; false with the remaining duration otherwise.
func (s *CooldownStore) TryAcquire(ctx context.Context, clientID int64, ttl time.Duration) (bool, time.Duration, error) {
	key := fmt.Sprintf("cooldown:client:%d", clientID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining, nil
}

// Clear drops a client's cooldown window.
func (s *CooldownStore) Clear(ctx context.Context, clientID int64) error {
	key := fmt.Sprintf("cooldown:client:%d", clientID)

	return s.client.Del(ctx, key).Err()
}
