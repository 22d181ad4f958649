package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 5. PHASE TIMEOUTS
// ──────────────────────────────────────────────

// shortTimeouts makes every phase timer fire within a test run.
func shortTimeouts(d time.Duration) service.DispatchConfig {
	return service.DispatchConfig{
		UnclaimedTimeout: d,
		SelectionTimeout: d,
		StaleTimeout:     d,
	}
}

func orderStatus(t *testing.T, f *fixture, orderID int64) domain.OrderStatus {
	t.Helper()
	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return order.Status
}

func TestUnclaimedTimeout_NoBids_CancelsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, shortTimeouts(30*time.Millisecond))
	f.addEligibleDriver(10)
	orderID := submitPendingOrder(t, f, 1)

	if !waitFor(t, 2*time.Second, func() bool {
		return orderStatus(t, f, orderID) == domain.OrderStatusCancelled
	}) {
		t.Fatal("expected order to be cancelled by the unclaimed timer")
	}

	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.CancelledBy != domain.CancelReasonUnclaimedTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonUnclaimedTimer, order.CancelledBy)
	}
	if f.Timers.Len() != 0 {
		t.Errorf("expected no live timers after firing, got %d", f.Timers.Len())
	}
}

func TestSelectionTimeout_NoChoice_CancelsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, service.DispatchConfig{
		UnclaimedTimeout: time.Hour,
		SelectionTimeout: 30 * time.Millisecond,
		StaleTimeout:     time.Hour,
	})
	f.addEligibleDriver(10)
	f.addEligibleDriver(11)
	orderID := submitPendingOrder(t, f, 1)

	if _, err := f.Service.SubmitBid(context.Background(), orderID, 10, 8); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if _, err := f.Service.SubmitBid(context.Background(), orderID, 11, 5); err != nil {
		t.Fatalf("bid: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		return orderStatus(t, f, orderID) == domain.OrderStatusCancelled
	}) {
		t.Fatal("expected order to be cancelled by the selection timer")
	}

	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.CancelledBy != domain.CancelReasonSelectionTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonSelectionTimer, order.CancelledBy)
	}
	// The client and both bidders are told.
	if got := f.Sink.CountByType(service.NotificationOrderCancelled); got != 3 {
		t.Errorf("expected 3 cancellation notifications, got %d", got)
	}
}

func TestStaleTimeout_AcceptedOrder_CancelsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, service.DispatchConfig{
		UnclaimedTimeout: time.Hour,
		SelectionTimeout: time.Hour,
		StaleTimeout:     30 * time.Millisecond,
	})
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	if !waitFor(t, 2*time.Second, func() bool {
		return orderStatus(t, f, orderID) == domain.OrderStatusCancelled
	}) {
		t.Fatal("expected order to be cancelled by the stale timer")
	}

	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.CancelledBy != domain.CancelReasonStaleTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonStaleTimer, order.CancelledBy)
	}
	if order.DriverID != 0 {
		t.Errorf("expected cancellation to drop the driver assignment, got driver %d", order.DriverID)
	}
}

func TestUnclaimedTimeout_BidLanded_LeavesOrderAlone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, service.DispatchConfig{
		UnclaimedTimeout: 50 * time.Millisecond,
		SelectionTimeout: time.Hour,
		StaleTimeout:     time.Hour,
	})
	f.addEligibleDriver(10)
	orderID := submitPendingOrder(t, f, 1)

	// The bid replaces the unclaimed timer with the selection timer before
	// the unclaimed deadline can hit.
	if _, err := f.Service.SubmitBid(context.Background(), orderID, 10, 8); err != nil {
		t.Fatalf("bid: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if got := orderStatus(t, f, orderID); got != domain.OrderStatusPending {
		t.Errorf("expected order to stay pending, got %s", got)
	}
	phase, live := f.Timers.Active(orderID)
	if !live || phase != domain.PhaseSelection {
		t.Errorf("expected live selection timer, got phase=%s live=%v", phase, live)
	}
}

func TestTimerFire_AfterCompletion_IsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, service.DispatchConfig{
		UnclaimedTimeout: time.Hour,
		SelectionTimeout: time.Hour,
		StaleTimeout:     60 * time.Millisecond,
	})
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	// Complete just before the stale deadline and make sure the fired timer
	// does not flip the completed order to cancelled.
	if _, err := f.Service.CompleteOrder(context.Background(), orderID, 10); err != nil {
		t.Fatalf("complete: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if got := orderStatus(t, f, orderID); got != domain.OrderStatusCompleted {
		t.Errorf("expected order to stay completed, got %s", got)
	}
}

func TestStaleTimerFire_AfterManualCancel_KeepsReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t, service.DispatchConfig{
		UnclaimedTimeout: time.Hour,
		SelectionTimeout: time.Hour,
		StaleTimeout:     60 * time.Millisecond,
	})
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	// A manual cancellation lands in the store while the stale timer is
	// already in flight. The fired handler must leave the record alone.
	manualReason := domain.CancelledByClient(1)
	ok, err := f.Orders.UpdateStatusIf(context.Background(), orderID,
		domain.OrderStatusAccepted, domain.OrderStatusCancelled, manualReason)
	if err != nil || !ok {
		t.Fatalf("manual cancel: ok=%v err=%v", ok, err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return f.Timers.Len() == 0 }) {
		t.Fatal("expected the stale timer to fire and drain")
	}
	time.Sleep(50 * time.Millisecond)

	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected order to stay cancelled, got %s", order.Status)
	}
	if order.CancelledBy != manualReason {
		t.Errorf("expected cancel reason %q to survive the late fire, got %q", manualReason, order.CancelledBy)
	}
	if got := f.Sink.CountByType(service.NotificationOrderCancelled); got != 0 {
		t.Errorf("expected no cancellation notifications from the no-op fire, got %d", got)
	}
}
