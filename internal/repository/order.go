package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order and fills in its assigned id.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by id.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// ListActive retrieves non-terminal orders, newest first.
	ListActive(ctx context.Context, limit, offset int) ([]*domain.Order, error)

	// HasActiveByClient reports whether the client has a pending or accepted order.
	HasActiveByClient(ctx context.Context, clientID int64) (bool, error)

	// HasAcceptedByDriver reports whether the driver currently has an accepted order.
	HasAcceptedByDriver(ctx context.Context, driverID int64) (bool, error)

	// UpdateStatusIf transitions the order from expected to next in a single
	// compare-and-set. cancelledBy is recorded when next is cancelled.
	// Returns false when the order is no longer in the expected status.
	UpdateStatusIf(ctx context.Context, id int64, expected, next domain.OrderStatus, cancelledBy string) (bool, error)

	// AssignDriverIf atomically moves a pending, unassigned order to accepted
	// with the given driver, refusing when the driver already has an accepted
	// order elsewhere. Returns false when any precondition no longer holds.
	AssignDriverIf(ctx context.Context, id, driverID int64, at time.Time) (bool, error)

	// SetFirstBidAt stamps the first-bid reference timestamp if not yet set.
	SetFirstBidAt(ctx context.Context, id int64, at time.Time) error

	// SetDriverArrived marks the assigned driver as arrived. Returns false
	// when the driver is not the assigned one or the order is not accepted.
	SetDriverArrived(ctx context.Context, id, driverID int64) (bool, error)
}
