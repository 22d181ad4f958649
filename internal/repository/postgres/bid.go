package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
)

// BidRepository is a PostgreSQL implementation of repository.BidRepository.
type BidRepository struct {
	q Querier
}

// NewBidRepository creates a new PostgreSQL bid repository.
func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{q: db}
}

// NewBidRepositoryWithTx creates a bid repository using a transaction.
func NewBidRepositoryWithTx(tx *sql.Tx) *BidRepository {
	return &BidRepository{q: tx}
}

// InsertIfAbsent creates a pending bid unless one already exists for the
// (order, driver) pair. The unique constraint on (order_id, driver_id) is the
// arbiter; ON CONFLICT DO NOTHING turns the race into rowsAffected == 0.
func (r *BidRepository) InsertIfAbsent(ctx context.Context, orderID, driverID int64, arrivalMinutes int) (bool, error) {
	query := `
		INSERT INTO bids (order_id, driver_id, arrival_minutes, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		ON CONFLICT (order_id, driver_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, orderID, driverID, arrivalMinutes)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ListByOrder retrieves all bids for an order, oldest first.
func (r *BidRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Bid, error) {
	query := `
		SELECT id, order_id, driver_id, arrival_minutes, status, created_at
		FROM bids
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.OrderID,
			&bid.DriverID,
			&bid.ArrivalMinutes,
			&bid.Status,
			&bid.CreatedAt,
		); err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}

// HasAny reports whether the order has at least one bid.
func (r *BidRepository) HasAny(ctx context.Context, orderID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bids WHERE order_id = $1)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, orderID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkAccepted sets the chosen bid accepted.
func (r *BidRepository) MarkAccepted(ctx context.Context, orderID, driverID int64) error {
	query := `UPDATE bids SET status = 'accepted' WHERE order_id = $1 AND driver_id = $2`

	_, err := r.q.ExecContext(ctx, query, orderID, driverID)
	return err
}

// RejectOthers sets every sibling bid rejected.
func (r *BidRepository) RejectOthers(ctx context.Context, orderID, driverID int64) error {
	query := `UPDATE bids SET status = 'rejected' WHERE order_id = $1 AND driver_id != $2`

	_, err := r.q.ExecContext(ctx, query, orderID, driverID)
	return err
}
