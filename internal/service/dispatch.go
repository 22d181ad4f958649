package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/timer"
)

// DispatchConfig carries the tunable dispatch parameters.
type DispatchConfig struct {
	UnclaimedTimeout  time.Duration
	SelectionTimeout  time.Duration
	StaleTimeout      time.Duration
	OrderCooldown     time.Duration
	AutoAcceptDefault bool
}

// ActorRole identifies who is cancelling an order.
type ActorRole string

const (
	RoleClient ActorRole = "client"
	RoleDriver ActorRole = "driver"
	RoleAdmin  ActorRole = "admin"
)

// Actor is the authenticated party performing a cancellation.
type Actor struct {
	Role ActorRole
	ID   int64
}

// SubmitOrderInput carries the fields of a new order request.
type SubmitOrderInput struct {
	ClientID   int64
	Pickup     string
	Dropoff    string
	Comment    string
	Passengers int
	Source     domain.OrderSource
}

// SubmitOrderResult reports the outcome of order submission. When no driver
// is on shift the order is created and immediately cancelled, so callers get
// the cancelled order back rather than an error.
type SubmitOrderResult struct {
	Order           *domain.Order
	DriversNotified int
}

// DispatchService drives the order lifecycle: submission, bidding, driver
// selection, arrival, completion and cancellation. Every state transition
// goes through a conditional update so concurrent actors cannot move the
// same order twice.
type DispatchService struct {
	orderRepo  repository.OrderRepository
	bidRepo    repository.BidRepository
	driverRepo repository.DriverRepository
	acceptor   BidAcceptor
	cooldowns  redis.CooldownStoreInterface
	settings   redis.SettingsStoreInterface
	timers     *timer.Registry
	notifier   *NotificationService
	cfg        DispatchConfig
	now        func() time.Time
}

// NewDispatchService creates a DispatchService.
func NewDispatchService(
	orderRepo repository.OrderRepository,
	bidRepo repository.BidRepository,
	driverRepo repository.DriverRepository,
	acceptor BidAcceptor,
	cooldowns redis.CooldownStoreInterface,
	settings redis.SettingsStoreInterface,
	timers *timer.Registry,
	notifier *NotificationService,
	cfg DispatchConfig,
) *DispatchService {
	return &DispatchService{
		orderRepo:  orderRepo,
		bidRepo:    bidRepo,
		driverRepo: driverRepo,
		acceptor:   acceptor,
		cooldowns:  cooldowns,
		settings:   settings,
		timers:     timers,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetClock overrides the time source used for timer reference stamps.
func (s *DispatchService) SetClock(now func() time.Time) {
	s.now = now
}

// SubmitOrder validates and persists a new order, broadcasts it to eligible
// drivers and arms the unclaimed timer. With nobody on shift the order is
// cancelled in place with the no-drivers reason.
func (s *DispatchService) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*SubmitOrderResult, error) {
	if input.ClientID <= 0 {
		return nil, ErrInvalidClientID
	}
	if input.Pickup == "" || input.Dropoff == "" {
		return nil, ErrInvalidAddress
	}
	if input.Passengers < 1 || input.Passengers > 4 {
		return nil, ErrInvalidPassengers
	}
	if input.Source == "" {
		input.Source = domain.OrderSourceAPI
	}

	active, err := s.orderRepo.HasActiveByClient(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveOrderExists
	}

	if s.cfg.OrderCooldown > 0 {
		ok, remaining, err := s.cooldowns.TryAcquire(ctx, input.ClientID, s.cfg.OrderCooldown)
		if err != nil {
			// Cooldown is rate limiting, not correctness. Fail open.
			log.Printf("[dispatch] cooldown check failed for client %d: %v", input.ClientID, err)
		} else if !ok {
			return nil, &CooldownError{Remaining: remaining}
		}
	}

	order := &domain.Order{
		ClientID:   input.ClientID,
		Pickup:     input.Pickup,
		Dropoff:    input.Dropoff,
		Comment:    input.Comment,
		Passengers: input.Passengers,
		Status:     domain.OrderStatusPending,
		Source:     input.Source,
		CreatedAt:  s.now(),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if clearErr := s.cooldowns.Clear(ctx, input.ClientID); clearErr != nil {
			log.Printf("[dispatch] cooldown clear failed for client %d: %v", input.ClientID, clearErr)
		}
		return nil, err
	}

	drivers, err := s.driverRepo.ListEligible(ctx, s.now())
	if err != nil {
		return nil, err
	}
	driverIDs := make([]int64, 0, len(drivers))
	for _, d := range drivers {
		if d.ID == order.ClientID {
			continue
		}
		driverIDs = append(driverIDs, d.ID)
	}

	if len(driverIDs) == 0 {
		ok, err := s.orderRepo.UpdateStatusIf(ctx, order.ID,
			domain.OrderStatusPending, domain.OrderStatusCancelled, domain.CancelReasonNoDrivers)
		if err != nil {
			return nil, err
		}
		if ok {
			order.Status = domain.OrderStatusCancelled
			order.CancelledBy = domain.CancelReasonNoDrivers
			s.notifier.NotifyOrderCancelled(ctx, order.ID, order.ClientID, domain.CancelReasonNoDrivers)
		}
		return &SubmitOrderResult{Order: order}, nil
	}

	s.notifier.NotifyOrderBroadcast(ctx, order, driverIDs)
	s.timers.Start(order.ID, domain.PhaseUnclaimed, s.cfg.UnclaimedTimeout, s.handleTimeout)
	log.Printf("[dispatch] order %d broadcast to %d drivers", order.ID, len(driverIDs))

	return &SubmitOrderResult{Order: order, DriversNotified: len(driverIDs)}, nil
}

// SubmitBid records a driver's offer on a pending order. The first bid starts
// the selection window; later bids join it without extending the deadline.
// With auto-accept enabled a sole bid is assigned immediately.
func (s *DispatchService) SubmitBid(ctx context.Context, orderID, driverID int64, arrivalMinutes int) (*domain.Bid, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}
	if arrivalMinutes < 1 || arrivalMinutes > 120 {
		return nil, ErrInvalidArrivalMinutes
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID == driverID {
		return nil, ErrOwnOrder
	}
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderClosed
	}

	busy, err := s.orderRepo.HasAcceptedByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrDriverBusy
	}

	inserted, err := s.bidRepo.InsertIfAbsent(ctx, orderID, driverID, arrivalMinutes)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrDuplicateBid
	}

	bids, err := s.bidRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var bid *domain.Bid
	for _, b := range bids {
		if b.DriverID == driverID {
			bid = b
			break
		}
	}
	if bid == nil {
		bid = &domain.Bid{OrderID: orderID, DriverID: driverID, ArrivalMinutes: arrivalMinutes, Status: domain.BidStatusPending}
	}

	if len(bids) == 1 {
		if err := s.orderRepo.SetFirstBidAt(ctx, orderID, s.now()); err != nil {
			log.Printf("[dispatch] failed to stamp first bid on order %d: %v", orderID, err)
		}
	}

	autoAccept := s.settings.AutoAcceptEnabled(ctx, s.cfg.AutoAcceptDefault)
	decision := Decide(bids, autoAccept)

	if decision.Action == AutoAccept {
		won, acceptErr := s.acceptor.AcceptBid(ctx, orderID, decision.DriverID, s.now())
		if acceptErr == nil && won {
			s.timers.Start(orderID, domain.PhaseStale, s.cfg.StaleTimeout, s.handleTimeout)
			s.notifier.NotifyDriverAssigned(ctx, order, bid)
			log.Printf("[dispatch] order %d auto-accepted driver %d", orderID, driverID)
			return bid, nil
		}
		if acceptErr != nil {
			log.Printf("[dispatch] auto-accept of driver %d on order %d failed: %v", driverID, orderID, acceptErr)
		}
		// The bid is already persisted. Hand the order over to client
		// selection so it still carries a deadline.
	}

	// Arm the selection window once, on the first bid that finds it absent.
	// The deadline is never extended by later bids.
	if phase, live := s.timers.Active(orderID); !live || phase != domain.PhaseSelection {
		s.timers.Start(orderID, domain.PhaseSelection, s.cfg.SelectionTimeout, s.handleTimeout)
	}

	if len(bids) == 1 {
		s.notifier.NotifyFirstBid(ctx, order, bid, s.cfg.SelectionTimeout)
	} else {
		s.notifier.NotifyBidListUpdated(ctx, order, bids)
	}
	return bid, nil
}

// SelectDriver carries out the client's choice among pending bids.
func (s *DispatchService) SelectDriver(ctx context.Context, orderID, clientID, driverID int64) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if clientID <= 0 {
		return nil, ErrInvalidClientID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderClosed
	}

	bids, err := s.bidRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var chosen *domain.Bid
	for _, b := range bids {
		if b.DriverID == driverID && b.Status == domain.BidStatusPending {
			chosen = b
			break
		}
	}
	if chosen == nil {
		return nil, ErrNoBidFromDriver
	}

	at := s.now()
	won, err := s.acceptor.AcceptBid(ctx, orderID, driverID, at)
	if err != nil {
		return nil, err
	}
	if !won {
		// The conditional update lost: either the order moved on or the
		// driver picked up another order in the meantime.
		current, gerr := s.orderRepo.GetByID(ctx, orderID)
		if gerr == nil && current.Status == domain.OrderStatusPending {
			return nil, ErrDriverBusy
		}
		return nil, ErrOrderClosed
	}

	order.Status = domain.OrderStatusAccepted
	order.DriverID = driverID
	order.AcceptedAt = at

	s.timers.Start(orderID, domain.PhaseStale, s.cfg.StaleTimeout, s.handleTimeout)
	s.notifier.NotifyDriverAssigned(ctx, order, chosen)
	for _, b := range bids {
		if b.DriverID != driverID {
			s.notifier.NotifyBidRejected(ctx, orderID, b.DriverID)
		}
	}
	log.Printf("[dispatch] order %d assigned to driver %d", orderID, driverID)
	return order, nil
}

// MarkArrived records that the assigned driver reached the pickup point.
func (s *DispatchService) MarkArrived(ctx context.Context, orderID, driverID int64) error {
	if orderID <= 0 {
		return ErrInvalidOrderID
	}
	if driverID <= 0 {
		return ErrInvalidDriverID
	}

	ok, err := s.orderRepo.SetDriverArrived(ctx, orderID, driverID)
	if err != nil {
		return err
	}
	if !ok {
		order, gerr := s.orderRepo.GetByID(ctx, orderID)
		if gerr != nil {
			return gerr
		}
		if order.DriverID != driverID {
			return ErrNotAssigned
		}
		return ErrWrongState
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err == nil {
		s.notifier.NotifyDriverArrived(ctx, order)
	}
	return nil
}

// CompleteOrder moves an accepted order to completed on behalf of its driver.
func (s *DispatchService) CompleteOrder(ctx context.Context, orderID, driverID int64) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DriverID != driverID {
		return nil, ErrNotAssigned
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID,
		domain.OrderStatusAccepted, domain.OrderStatusCompleted, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWrongState
	}

	order.Status = domain.OrderStatusCompleted
	s.timers.Cancel(orderID)
	s.notifier.NotifyOrderCompleted(ctx, order)
	log.Printf("[dispatch] order %d completed by driver %d", orderID, driverID)
	return order, nil
}

// CancelOrder cancels an order on behalf of a client, driver or admin. The
// actor is recorded in the cancellation reason.
func (s *DispatchService) CancelOrder(ctx context.Context, orderID int64, actor Actor) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if actor.ID <= 0 {
		return nil, ErrInvalidClientID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	var reason string
	switch actor.Role {
	case RoleClient:
		if order.ClientID != actor.ID {
			return nil, ErrNotOwner
		}
		reason = domain.CancelledByClient(actor.ID)
	case RoleDriver:
		if order.DriverID != actor.ID {
			return nil, ErrNotAssigned
		}
		reason = domain.CancelledByDriver(actor.ID)
	case RoleAdmin:
		reason = domain.CancelledByAdmin(actor.ID)
	default:
		return nil, ErrNotParticipant
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID, order.Status, domain.OrderStatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The order moved while we looked at it. Report what it moved to:
		// a terminal state is final, anything else is a retryable conflict.
		fresh, gerr := s.orderRepo.GetByID(ctx, orderID)
		if gerr != nil {
			return nil, gerr
		}
		if fresh.Status.IsTerminal() {
			return nil, ErrAlreadyTerminal
		}
		return nil, ErrWrongState
	}

	prevStatus := order.Status
	assignedDriver := order.DriverID
	order.Status = domain.OrderStatusCancelled
	order.CancelledBy = reason
	order.DriverID = 0
	s.timers.Cancel(orderID)

	switch actor.Role {
	case RoleClient:
		if assignedDriver != 0 {
			s.notifier.NotifyOrderCancelled(ctx, orderID, assignedDriver, reason)
		} else if prevStatus == domain.OrderStatusPending {
			s.notifyPendingBidders(ctx, orderID, reason)
		}
	case RoleDriver:
		s.notifier.NotifyOrderCancelled(ctx, orderID, order.ClientID, reason)
	case RoleAdmin:
		s.notifier.NotifyOrderCancelled(ctx, orderID, order.ClientID, reason)
		if assignedDriver != 0 {
			s.notifier.NotifyOrderCancelled(ctx, orderID, assignedDriver, reason)
		} else {
			s.notifyPendingBidders(ctx, orderID, reason)
		}
	}
	log.Printf("[dispatch] order %d cancelled (%s)", orderID, reason)
	return order, nil
}

// GetOrder retrieves a single order.
func (s *DispatchService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	return s.orderRepo.GetByID(ctx, orderID)
}

// GetBidsFor retrieves the bids on an order, oldest first.
func (s *DispatchService) GetBidsFor(ctx context.Context, orderID int64) ([]*domain.Bid, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByOrder(ctx, orderID)
}

// ListActiveOrders retrieves a page of non-terminal orders.
func (s *DispatchService) ListActiveOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListActive(ctx, limit, offset)
}

// SetAutoAccept toggles the auto-accept matching policy at runtime.
func (s *DispatchService) SetAutoAccept(ctx context.Context, enabled bool) error {
	return s.settings.SetAutoAccept(ctx, enabled)
}

// AutoAcceptEnabled reports the current auto-accept setting.
func (s *DispatchService) AutoAcceptEnabled(ctx context.Context) bool {
	return s.settings.AutoAcceptEnabled(ctx, s.cfg.AutoAcceptDefault)
}

func (s *DispatchService) notifyPendingBidders(ctx context.Context, orderID int64, reason string) {
	bids, err := s.bidRepo.ListByOrder(ctx, orderID)
	if err != nil {
		log.Printf("[dispatch] failed to list bids for cancelled order %d: %v", orderID, err)
		return
	}
	for _, b := range bids {
		if b.Status == domain.BidStatusPending {
			s.notifier.NotifyOrderCancelled(ctx, orderID, b.DriverID, reason)
		}
	}
}
