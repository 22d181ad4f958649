package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `id, client_id, driver_id, pickup, dropoff, comment, passengers, status, source, driver_arrived, created_at, first_bid_at, accepted_at, cancelled_by`

// Create persists a new order and fills in its assigned id.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (client_id, pickup, dropoff, comment, passengers, status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	source := order.Source
	if source == "" {
		source = domain.OrderSourceAPI
	}

	return r.q.QueryRowContext(ctx, query,
		order.ClientID,
		order.Pickup,
		order.Dropoff,
		order.Comment,
		order.Passengers,
		order.Status,
		source,
		order.CreatedAt,
	).Scan(&order.ID)
}

// GetByID retrieves an order by id.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListActive retrieves non-terminal orders, newest first.
func (r *OrderRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN ('pending', 'accepted')
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// HasActiveByClient reports whether the client has a pending or accepted order.
func (r *OrderRepository) HasActiveByClient(ctx context.Context, clientID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE client_id = $1 AND status IN ('pending', 'accepted'))`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, clientID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// HasAcceptedByDriver reports whether the driver currently has an accepted order.
func (r *OrderRepository) HasAcceptedByDriver(ctx context.Context, driverID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE driver_id = $1 AND status = 'accepted')`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, driverID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateStatusIf transitions the order from expected to next in a single
// compare-and-set. Cancellation drops the driver assignment: driver_id stays
// set only on accepted and completed orders.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id int64, expected, next domain.OrderStatus, cancelledBy string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, cancelled_by = COALESCE($2, cancelled_by)
		WHERE id = $3 AND status = $4
	`
	if next == domain.OrderStatusCancelled {
		query = `
			UPDATE orders
			SET status = $1, cancelled_by = COALESCE($2, cancelled_by), driver_id = NULL
			WHERE id = $3 AND status = $4
		`
	}

	var reason sql.NullString
	if cancelledBy != "" {
		reason = sql.NullString{String: cancelledBy, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query, next, reason, id, expected)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// AssignDriverIf atomically accepts a pending, unassigned order for a driver
// that has no other accepted order. The single UPDATE carries every guard so
// concurrent attempts serialize on the row and exactly one wins.
func (r *OrderRepository) AssignDriverIf(ctx context.Context, id, driverID int64, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET driver_id = $1, status = 'accepted', accepted_at = $2
		WHERE id = $3
		  AND status = 'pending'
		  AND driver_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM orders o WHERE o.driver_id = $1 AND o.status = 'accepted'
		  )
	`

	result, err := r.q.ExecContext(ctx, query, driverID, at, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// SetFirstBidAt stamps the first-bid reference timestamp if not yet set.
func (r *OrderRepository) SetFirstBidAt(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE orders SET first_bid_at = $1 WHERE id = $2 AND first_bid_at IS NULL`

	_, err := r.q.ExecContext(ctx, query, at, id)
	return err
}

// SetDriverArrived marks the assigned driver as arrived.
func (r *OrderRepository) SetDriverArrived(ctx context.Context, id, driverID int64) (bool, error) {
	query := `
		UPDATE orders
		SET driver_arrived = TRUE
		WHERE id = $1 AND driver_id = $2 AND status = 'accepted'
	`

	result, err := r.q.ExecContext(ctx, query, id, driverID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var order domain.Order
	var driverID sql.NullInt64
	var comment sql.NullString
	var firstBidAt sql.NullTime
	var acceptedAt sql.NullTime
	var cancelledBy sql.NullString

	err := s.Scan(
		&order.ID,
		&order.ClientID,
		&driverID,
		&order.Pickup,
		&order.Dropoff,
		&comment,
		&order.Passengers,
		&order.Status,
		&order.Source,
		&order.DriverArrived,
		&order.CreatedAt,
		&firstBidAt,
		&acceptedAt,
		&cancelledBy,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		order.DriverID = driverID.Int64
	}
	if comment.Valid {
		order.Comment = comment.String
	}
	if firstBidAt.Valid {
		order.FirstBidAt = firstBidAt.Time
	}
	if acceptedAt.Valid {
		order.AcceptedAt = acceptedAt.Time
	}
	if cancelledBy.Valid {
		order.CancelledBy = cancelledBy.String
	}

	return &order, nil
}
