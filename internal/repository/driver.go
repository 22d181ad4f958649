package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// DriverRepository defines the persistence operations for driver availability.
type DriverRepository interface {
	// Save upserts a driver record.
	Save(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by id.
	GetByID(ctx context.Context, id int64) (*domain.Driver, error)

	// ListEligible retrieves drivers eligible for broadcast at the given
	// instant: shift open, verification current, not banned.
	ListEligible(ctx context.Context, now time.Time) ([]*domain.Driver, error)

	// SetShift opens or closes a driver's shift.
	SetShift(ctx context.Context, id int64, open bool) error
}
