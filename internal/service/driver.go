package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService manages driver availability: registration, shifts and the
// best-effort position relay.
type DriverService struct {
	driverRepo repository.DriverRepository
	orderRepo  repository.OrderRepository
	positions  redis.PositionStoreInterface
	now        func() time.Time
}

// NewDriverService creates a DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	orderRepo repository.OrderRepository,
	positions redis.PositionStoreInterface,
) *DriverService {
	return &DriverService{
		driverRepo: driverRepo,
		orderRepo:  orderRepo,
		positions:  positions,
		now:        time.Now,
	}
}

// RegisterDriver upserts a driver profile.
func (s *DriverService) RegisterDriver(ctx context.Context, driver *domain.Driver) error {
	if driver == nil || driver.ID <= 0 {
		return ErrInvalidDriverID
	}
	return s.driverRepo.Save(ctx, driver)
}

// GetDriver retrieves a driver profile.
func (s *DriverService) GetDriver(ctx context.Context, driverID int64) (*domain.Driver, error) {
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// SetShift opens or closes a driver's shift. Only drivers with an open shift
// receive order broadcasts.
func (s *DriverService) SetShift(ctx context.Context, driverID int64, open bool) error {
	if driverID <= 0 {
		return ErrInvalidDriverID
	}
	if err := s.driverRepo.SetShift(ctx, driverID, open); err != nil {
		return err
	}
	state := "closed"
	if open {
		state = "opened"
	}
	log.Printf("[driver] driver %d %s shift", driverID, state)
	return nil
}

// UpdatePosition stores a driver's last-known position in the relay.
func (s *DriverService) UpdatePosition(ctx context.Context, driverID int64, lat, lng float64) error {
	if driverID <= 0 {
		return ErrInvalidDriverID
	}
	return s.positions.Update(ctx, &redis.DriverPosition{
		DriverID:  driverID,
		Lat:       lat,
		Lng:       lng,
		UpdatedAt: s.now(),
	})
}

// PositionForOrder returns the assigned driver's last-known position to the
// order's client. Nil when none is current.
func (s *DriverService) PositionForOrder(ctx context.Context, orderID, clientID int64) (*redis.DriverPosition, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if clientID <= 0 {
		return nil, ErrInvalidClientID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if order.Status != domain.OrderStatusAccepted {
		return nil, ErrWrongState
	}
	return s.positions.Get(ctx, order.DriverID)
}
