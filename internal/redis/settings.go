package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const autoAcceptKey = "settings:auto_accept_on_first_bid"

// SettingsStore holds runtime-togglable dispatch settings in Redis.
type SettingsStore struct {
	client *redis.Client
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(client *redis.Client) *SettingsStore {
	return &SettingsStore{client: client}
}

// AutoAcceptEnabled reads the auto-accept flag, falling back to the given
// default when the key is unset or Redis is unreachable.
func (s *SettingsStore) AutoAcceptEnabled(ctx context.Context, fallback bool) bool {
	val, err := s.client.Get(ctx, autoAcceptKey).Result()
	if err != nil {
		return fallback
	}
	return val == "1"
}

// SetAutoAccept writes the auto-accept flag.
func (s *SettingsStore) SetAutoAccept(ctx context.Context, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	return s.client.Set(ctx, autoAcceptKey, val, 0).Err()
}
