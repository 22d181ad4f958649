package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 4. ARRIVAL, COMPLETION AND CANCELLATION
// ──────────────────────────────────────────────

// acceptedOrder drives an order through submission, one bid and selection.
func acceptedOrder(t *testing.T, f *fixture, clientID, driverID int64) int64 {
	t.Helper()

	orderID := submitPendingOrder(t, f, clientID)
	if _, err := f.Service.SubmitBid(context.Background(), orderID, driverID, 8); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if _, err := f.Service.SelectDriver(context.Background(), orderID, clientID, driverID); err != nil {
		t.Fatalf("select: %v", err)
	}
	return orderID
}

func TestMarkArrived_AssignedDriver_Succeeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	if err := f.Service.MarkArrived(context.Background(), orderID, 10); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	order, err := f.Service.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !order.DriverArrived {
		t.Error("expected driver_arrived to be set")
	}
	if got := f.Sink.CountByType(service.NotificationDriverArrived); got != 1 {
		t.Errorf("expected 1 arrival notification, got %d", got)
	}
}

func TestMarkArrived_WrongDriver_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	err := f.Service.MarkArrived(context.Background(), orderID, 99)
	if !errors.Is(err, service.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got: %v", err)
	}
}

func TestCompleteOrder_AssignedDriver_Succeeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	order, err := f.Service.CompleteOrder(context.Background(), orderID, 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected completed, got %s", order.Status)
	}
	if _, live := f.Timers.Active(orderID); live {
		t.Error("expected stale timer to be cancelled on completion")
	}
	if got := f.Sink.CountByType(service.NotificationOrderCompleted); got != 1 {
		t.Errorf("expected 1 completion notification, got %d", got)
	}
	if got := f.Sink.CountByType(service.NotificationRatingRequested); got != 1 {
		t.Errorf("expected 1 rating request, got %d", got)
	}
}

func TestCompleteOrder_PendingOrder_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := submitPendingOrder(t, f, 1)

	_, err := f.Service.CompleteOrder(context.Background(), orderID, 10)
	if !errors.Is(err, service.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got: %v", err)
	}
}

func TestCancelOrder_ByClient_RecordsActor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := submitPendingOrder(t, f, 1)

	order, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleClient, ID: 1})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if order.CancelledBy != "client_1" {
		t.Errorf("expected cancel reason client_1, got %q", order.CancelledBy)
	}
	if _, live := f.Timers.Active(orderID); live {
		t.Error("expected timer to be cancelled")
	}
}

func TestCancelOrder_ByAssignedDriver_NotifiesClient(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	order, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleDriver, ID: 10})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if order.CancelledBy != "driver_10" {
		t.Errorf("expected cancel reason driver_10, got %q", order.CancelledBy)
	}
	if got := f.Sink.CountByType(service.NotificationOrderCancelled); got != 1 {
		t.Errorf("expected 1 cancellation notification, got %d", got)
	}
}

func TestCancelOrder_ByUnassignedDriver_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	_, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleDriver, ID: 99})
	if !errors.Is(err, service.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got: %v", err)
	}
}

func TestCancelOrder_ByAdmin_AnyActiveOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	order, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleAdmin, ID: 500})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if order.CancelledBy != "admin_500" {
		t.Errorf("expected cancel reason admin_500, got %q", order.CancelledBy)
	}
	// Both the client and the assigned driver hear about it.
	if got := f.Sink.CountByType(service.NotificationOrderCancelled); got != 2 {
		t.Errorf("expected 2 cancellation notifications, got %d", got)
	}
}

func TestCancelOrder_AlreadyTerminal_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := acceptedOrder(t, f, 1, 10)

	if _, err := f.Service.CompleteOrder(context.Background(), orderID, 10); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleClient, ID: 1})
	if !errors.Is(err, service.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got: %v", err)
	}
}

func TestCancelOrder_LostRaceToAcceptance_ReturnsWrongState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	orderID := submitPendingOrder(t, f, 1)
	if _, err := f.Service.SubmitBid(context.Background(), orderID, 10, 8); err != nil {
		t.Fatalf("bid: %v", err)
	}

	// The order is accepted between the cancel's read and its conditional
	// update. The lost cancel reports a retryable conflict, not a terminal
	// state the order is not in.
	var once sync.Once
	f.Orders.UpdateStatusIfHook = func(id int64) {
		once.Do(func() {
			if _, err := f.Acceptor.AcceptBid(context.Background(), orderID, 10, time.Now()); err != nil {
				t.Errorf("competing accept: %v", err)
			}
		})
	}

	_, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleClient, ID: 1})
	if !errors.Is(err, service.ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got: %v", err)
	}
	if got := orderStatus(t, f, orderID); got != domain.OrderStatusAccepted {
		t.Errorf("expected order to stay accepted, got %s", got)
	}

	// Retrying against the fresh state succeeds.
	f.Orders.UpdateStatusIfHook = nil
	order, err := f.Service.CancelOrder(context.Background(), orderID, service.Actor{Role: service.RoleClient, ID: 1})
	if err != nil {
		t.Fatalf("retry cancel: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled after retry, got %s", order.Status)
	}
}
