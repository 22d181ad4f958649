package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// Save upserts a driver record.
func (r *DriverRepository) Save(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, car_brand, car_number, shift_opened, verified_until, banned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			car_brand = EXCLUDED.car_brand,
			car_number = EXCLUDED.car_number,
			shift_opened = EXCLUDED.shift_opened,
			verified_until = EXCLUDED.verified_until,
			banned = EXCLUDED.banned
	`

	var verifiedUntil sql.NullTime
	if !driver.VerifiedUntil.IsZero() {
		verifiedUntil = sql.NullTime{Time: driver.VerifiedUntil, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.CarBrand,
		driver.CarNumber,
		driver.ShiftOpened,
		verifiedUntil,
		driver.Banned,
	)
	return err
}

// GetByID retrieves a driver by id.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(car_brand, ''), COALESCE(car_number, ''), shift_opened, verified_until, banned
		FROM drivers WHERE id = $1
	`

	var driver domain.Driver
	var verifiedUntil sql.NullTime
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&driver.ID,
		&driver.Name,
		&driver.CarBrand,
		&driver.CarNumber,
		&driver.ShiftOpened,
		&verifiedUntil,
		&driver.Banned,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if verifiedUntil.Valid {
		driver.VerifiedUntil = verifiedUntil.Time
	}
	return &driver, nil
}

// ListEligible retrieves drivers eligible for broadcast at the given instant.
func (r *DriverRepository) ListEligible(ctx context.Context, now time.Time) ([]*domain.Driver, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(car_brand, ''), COALESCE(car_number, ''), shift_opened, verified_until, banned
		FROM drivers
		WHERE shift_opened = TRUE AND banned = FALSE AND verified_until >= $1
	`

	rows, err := r.q.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var driver domain.Driver
		var verifiedUntil sql.NullTime
		if err := rows.Scan(
			&driver.ID,
			&driver.Name,
			&driver.CarBrand,
			&driver.CarNumber,
			&driver.ShiftOpened,
			&verifiedUntil,
			&driver.Banned,
		); err != nil {
			return nil, err
		}
		if verifiedUntil.Valid {
			driver.VerifiedUntil = verifiedUntil.Time
		}
		drivers = append(drivers, &driver)
	}
	return drivers, rows.Err()
}

// SetShift opens or closes a driver's shift.
func (r *DriverRepository) SetShift(ctx context.Context, id int64, open bool) error {
	query := `UPDATE drivers SET shift_opened = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, open, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
