package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/domain"
)

const timeoutHandlerBudget = 10 * time.Second

// handleTimeout is the registry fire handler. It runs on the timer goroutine
// with no request context, so it builds its own bounded one. Each phase
// handler re-checks persisted status through a conditional update: a timer
// that fires after the order already moved on is a no-op.
func (s *DispatchService) handleTimeout(orderID int64, phase domain.TimerPhase) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutHandlerBudget)
	defer cancel()

	var err error
	switch phase {
	case domain.PhaseUnclaimed:
		err = s.fireUnclaimed(ctx, orderID)
	case domain.PhaseSelection:
		err = s.fireSelection(ctx, orderID)
	case domain.PhaseStale:
		err = s.fireStale(ctx, orderID)
	default:
		log.Printf("[timeout] order %d: unknown phase %q", orderID, phase)
		return
	}
	if err != nil {
		log.Printf("[timeout] order %d phase %s: %v", orderID, phase, err)
	}
}

// fireUnclaimed cancels a pending order that drew no bids within the window.
// A bid that landed between scheduling and firing leaves the order alone; the
// selection timer that bid armed owns the order from then on.
func (s *DispatchService) fireUnclaimed(ctx context.Context, orderID int64) error {
	hasBids, err := s.bidRepo.HasAny(ctx, orderID)
	if err != nil {
		return err
	}
	if hasBids {
		return nil
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID,
		domain.OrderStatusPending, domain.OrderStatusCancelled, domain.CancelReasonUnclaimedTimer)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	s.notifier.NotifyOrderCancelled(ctx, orderID, order.ClientID, domain.CancelReasonUnclaimedTimer)
	log.Printf("[timeout] order %d cancelled: no bids within window", orderID)
	return nil
}

// fireSelection cancels a pending order whose client never picked a driver.
func (s *DispatchService) fireSelection(ctx context.Context, orderID int64) error {
	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID,
		domain.OrderStatusPending, domain.OrderStatusCancelled, domain.CancelReasonSelectionTimer)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	s.notifier.NotifyOrderCancelled(ctx, orderID, order.ClientID, domain.CancelReasonSelectionTimer)
	s.notifyPendingBidders(ctx, orderID, domain.CancelReasonSelectionTimer)
	log.Printf("[timeout] order %d cancelled: selection window expired", orderID)
	return nil
}

// fireStale cancels an accepted order that never completed. The parties are
// read before the conditional update because cancellation drops the driver
// assignment from the row.
func (s *DispatchService) fireStale(ctx context.Context, orderID int64) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	ok, err := s.orderRepo.UpdateStatusIf(ctx, orderID,
		domain.OrderStatusAccepted, domain.OrderStatusCancelled, domain.CancelReasonStaleTimer)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.notifier.NotifyOrderCancelled(ctx, orderID, order.ClientID, domain.CancelReasonStaleTimer)
	if order.DriverID != 0 {
		s.notifier.NotifyOrderCancelled(ctx, orderID, order.DriverID, domain.CancelReasonStaleTimer)
	}
	log.Printf("[timeout] order %d cancelled: accepted ride went stale", orderID)
	return nil
}
