package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/domain"
)

const recoveryPageSize = 100

// RestoreTimers rebuilds phase timers for every non-terminal order after a
// restart. Deadlines are recomputed from the persisted reference timestamps,
// not restarted from now, so a restart does not grant extra time. Orders whose
// window already elapsed go through the same handler a live timer would have
// invoked, synchronously, before the server starts taking traffic.
func (s *DispatchService) RestoreTimers(ctx context.Context) (int, error) {
	restored := 0
	for offset := 0; ; offset += recoveryPageSize {
		orders, err := s.orderRepo.ListActive(ctx, recoveryPageSize, offset)
		if err != nil {
			return restored, err
		}
		if len(orders) == 0 {
			break
		}
		for _, order := range orders {
			if err := s.restoreOrderTimer(ctx, order); err != nil {
				log.Printf("[recovery] order %d: %v", order.ID, err)
				continue
			}
			restored++
		}
		if len(orders) < recoveryPageSize {
			break
		}
	}
	log.Printf("[recovery] processed %d active orders, %d timers live", restored, s.timers.Len())
	return restored, nil
}

func (s *DispatchService) restoreOrderTimer(ctx context.Context, order *domain.Order) error {
	now := s.now()

	switch order.Status {
	case domain.OrderStatusPending:
		hasBids, err := s.bidRepo.HasAny(ctx, order.ID)
		if err != nil {
			return err
		}
		if !hasBids {
			return s.restorePhase(ctx, order.ID, domain.PhaseUnclaimed,
				order.CreatedAt, s.cfg.UnclaimedTimeout, now, s.fireUnclaimed)
		}
		ref := order.FirstBidAt
		if ref.IsZero() {
			ref = order.CreatedAt
		}
		return s.restorePhase(ctx, order.ID, domain.PhaseSelection,
			ref, s.cfg.SelectionTimeout, now, s.fireSelection)

	case domain.OrderStatusAccepted:
		ref := order.AcceptedAt
		if ref.IsZero() {
			ref = order.CreatedAt
		}
		return s.restorePhase(ctx, order.ID, domain.PhaseStale,
			ref, s.cfg.StaleTimeout, now, s.fireStale)
	}
	return nil
}

// restorePhase either re-arms the timer with its remaining budget or, when the
// deadline already passed, applies the expiry handler right away.
func (s *DispatchService) restorePhase(
	ctx context.Context,
	orderID int64,
	phase domain.TimerPhase,
	ref time.Time,
	window time.Duration,
	now time.Time,
	expired func(context.Context, int64) error,
) error {
	remaining := window - now.Sub(ref)
	if remaining <= 0 {
		return expired(ctx, orderID)
	}
	s.timers.Start(orderID, phase, remaining, s.handleTimeout)
	return nil
}
