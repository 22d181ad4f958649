package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 1. ORDER SUBMISSION
// ──────────────────────────────────────────────

func TestSubmitOrder_ValidInput_BroadcastsAndArmsTimer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	f.addEligibleDriver(11)

	result, err := f.Service.SubmitOrder(context.Background(), service.SubmitOrderInput{
		ClientID:   1,
		Pickup:     "Central Station",
		Dropoff:    "Airport",
		Passengers: 2,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Order.ID == 0 {
		t.Error("expected order ID to be set")
	}
	if result.Order.Status != domain.OrderStatusPending {
		t.Errorf("expected status pending, got %s", result.Order.Status)
	}
	if result.DriversNotified != 2 {
		t.Errorf("expected 2 drivers notified, got %d", result.DriversNotified)
	}
	if got := f.Sink.CountByType(service.NotificationOrderBroadcast); got != 2 {
		t.Errorf("expected 2 broadcast notifications, got %d", got)
	}

	phase, live := f.Timers.Active(result.Order.ID)
	if !live || phase != domain.PhaseUnclaimed {
		t.Errorf("expected live unclaimed timer, got phase=%s live=%v", phase, live)
	}
}

func TestSubmitOrder_NoEligibleDrivers_CancelsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	// One driver exists but is off shift.
	f.Drivers.AddDriver(&domain.Driver{ID: 10, ShiftOpened: false, VerifiedUntil: time.Now().Add(time.Hour)})

	result, err := f.Service.SubmitOrder(context.Background(), service.SubmitOrderInput{
		ClientID: 1, Pickup: "A", Dropoff: "B", Passengers: 1,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected status cancelled, got %s", result.Order.Status)
	}
	if result.Order.CancelledBy != domain.CancelReasonNoDrivers {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonNoDrivers, result.Order.CancelledBy)
	}
	if result.DriversNotified != 0 {
		t.Errorf("expected 0 drivers notified, got %d", result.DriversNotified)
	}
	if _, live := f.Timers.Active(result.Order.ID); live {
		t.Error("expected no timer for an immediately cancelled order")
	}
}

func TestSubmitOrder_ActiveOrderExists_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)
	f.Orders.AddOrder(&domain.Order{ClientID: 1, Status: domain.OrderStatusPending, CreatedAt: time.Now()})

	_, err := f.Service.SubmitOrder(context.Background(), service.SubmitOrderInput{
		ClientID: 1, Pickup: "A", Dropoff: "B", Passengers: 1,
	})
	if !errors.Is(err, service.ErrActiveOrderExists) {
		t.Fatalf("expected ErrActiveOrderExists, got: %v", err)
	}
}

func TestSubmitOrder_CooldownActive_Fails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	f.addEligibleDriver(10)

	first, err := f.Service.SubmitOrder(context.Background(), service.SubmitOrderInput{
		ClientID: 1, Pickup: "A", Dropoff: "B", Passengers: 1,
	})
	if err != nil {
		t.Fatalf("first order: expected no error, got: %v", err)
	}

	// Close out the first order so only the cooldown stands in the way.
	if _, err := f.Service.CancelOrder(context.Background(), first.Order.ID, service.Actor{Role: service.RoleClient, ID: 1}); err != nil {
		t.Fatalf("cancel: expected no error, got: %v", err)
	}

	_, err = f.Service.SubmitOrder(context.Background(), service.SubmitOrderInput{
		ClientID: 1, Pickup: "A", Dropoff: "B", Passengers: 1,
	})

	var cooldown *service.CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected CooldownError, got: %v", err)
	}
	if cooldown.Remaining <= 0 {
		t.Errorf("expected positive remaining cooldown, got %s", cooldown.Remaining)
	}
}

func TestSubmitOrder_InvalidInput_Fails(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   service.SubmitOrderInput
		wantErr error
	}{
		{
			name:    "missing client id",
			input:   service.SubmitOrderInput{Pickup: "A", Dropoff: "B", Passengers: 1},
			wantErr: service.ErrInvalidClientID,
		},
		{
			name:    "empty pickup",
			input:   service.SubmitOrderInput{ClientID: 1, Dropoff: "B", Passengers: 1},
			wantErr: service.ErrInvalidAddress,
		},
		{
			name:    "empty dropoff",
			input:   service.SubmitOrderInput{ClientID: 1, Pickup: "A", Passengers: 1},
			wantErr: service.ErrInvalidAddress,
		},
		{
			name:    "zero passengers",
			input:   service.SubmitOrderInput{ClientID: 1, Pickup: "A", Dropoff: "B"},
			wantErr: service.ErrInvalidPassengers,
		},
		{
			name:    "too many passengers",
			input:   service.SubmitOrderInput{ClientID: 1, Pickup: "A", Dropoff: "B", Passengers: 9},
			wantErr: service.ErrInvalidPassengers,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, longTimeouts)
			_, err := f.Service.SubmitOrder(context.Background(), tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got: %v", tc.wantErr, err)
			}
		})
	}
}
