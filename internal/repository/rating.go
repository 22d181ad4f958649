package repository

import (
	"context"

	"dispatch/internal/domain"
)

// RatingRepository defines the persistence operations for ratings.
type RatingRepository interface {
	// Save records a rating unless the rater already rated this order.
	// Returns false on a duplicate.
	Save(ctx context.Context, rating *domain.Rating) (bool, error)

	// AverageFor returns the mean score received by a user, 0 when unrated.
	AverageFor(ctx context.Context, userID int64) (float64, error)
}
