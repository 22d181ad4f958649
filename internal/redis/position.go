package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Positions expire so a silent driver drops off the relay instead of
// presenting a stale point as current.
const positionTTL = 2 * time.Minute

// DriverPosition is a best-effort last-known driver position.
type DriverPosition struct {
	DriverID  int64     `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PositionStore relays driver positions through Redis. It is soft state:
// never an input to a dispatch decision, only surfaced to the client of an
// accepted order.
type PositionStore struct {
	client *redis.Client
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(client *redis.Client) *PositionStore {
	return &PositionStore{client: client}
}

// Update stores a driver's position with a TTL.
func (s *PositionStore) Update(ctx context.Context, pos *DriverPosition) error {
	key := fmt.Sprintf("position:driver:%d", pos.DriverID)

	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, positionTTL).Err()
}

// Get retrieves a driver's last-known position, nil when none is current.
func (s *PositionStore) Get(ctx context.Context, driverID int64) (*DriverPosition, error) {
	key := fmt.Sprintf("position:driver:%d", driverID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var pos DriverPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}
