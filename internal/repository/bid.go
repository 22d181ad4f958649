package repository

import (
	"context"

	"dispatch/internal/domain"
)

// BidRepository defines the persistence operations for bids.
type BidRepository interface {
	// InsertIfAbsent creates a pending bid unless one already exists for the
	// (order, driver) pair. Returns false on a duplicate.
	InsertIfAbsent(ctx context.Context, orderID, driverID int64, arrivalMinutes int) (bool, error)

	// ListByOrder retrieves all bids for an order, oldest first.
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.Bid, error)

	// HasAny reports whether the order has at least one bid.
	HasAny(ctx context.Context, orderID int64) (bool, error)

	// MarkAccepted sets the chosen bid accepted.
	MarkAccepted(ctx context.Context, orderID, driverID int64) error

	// RejectOthers sets every sibling bid rejected.
	RejectOthers(ctx context.Context, orderID, driverID int64) error
}
