package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// Save records a rating unless the rater already rated this order.
func (r *RatingRepository) Save(ctx context.Context, rating *domain.Rating) (bool, error) {
	query := `
		INSERT INTO ratings (order_id, rater_id, target_id, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, rater_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, rating.OrderID, rating.RaterID, rating.TargetID, rating.Score)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// AverageFor returns the mean score received by a user, 0 when unrated.
func (r *RatingRepository) AverageFor(ctx context.Context, userID int64) (float64, error) {
	query := `SELECT AVG(score) FROM ratings WHERE target_id = $1`

	var avg sql.NullFloat64
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&avg); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
