package redis

import (
	"context"
	"time"
)

// CooldownStoreInterface defines the per-client order cooldown contract.
type CooldownStoreInterface interface {
	TryAcquire(ctx context.Context, clientID int64, ttl time.Duration) (bool, time.Duration, error)
	Clear(ctx context.Context, clientID int64) error
}

// SettingsStoreInterface defines runtime dispatch settings access.
type SettingsStoreInterface interface {
	AutoAcceptEnabled(ctx context.Context, fallback bool) bool
	SetAutoAccept(ctx context.Context, enabled bool) error
}

// PositionStoreInterface defines the best-effort position relay.
type PositionStoreInterface interface {
	Update(ctx context.Context, pos *DriverPosition) error
	Get(ctx context.Context, driverID int64) (*DriverPosition, error)
}

// Ensure concrete types implement interfaces.
var (
	_ CooldownStoreInterface = (*CooldownStore)(nil)
	_ SettingsStoreInterface = (*SettingsStore)(nil)
	_ PositionStoreInterface = (*PositionStore)(nil)
)
