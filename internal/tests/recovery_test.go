package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
)

// ──────────────────────────────────────────────
// 6. RESTART RECOVERY
// ──────────────────────────────────────────────

func TestRestoreTimers_ExpiredPendingNoBids_CancelsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	now := time.Now()
	f.Service.SetClock(func() time.Time { return now })

	// Created two hours ago against a one hour window.
	f.Orders.AddOrder(&domain.Order{
		ClientID: 1, Status: domain.OrderStatusPending,
		CreatedAt: now.Add(-2 * time.Hour),
	})

	if _, err := f.Service.RestoreTimers(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	order, err := f.Service.GetOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if order.CancelledBy != domain.CancelReasonUnclaimedTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonUnclaimedTimer, order.CancelledBy)
	}
	if f.Timers.Len() != 0 {
		t.Errorf("expected no live timers, got %d", f.Timers.Len())
	}
}

func TestRestoreTimers_ExpiredSelection_CancelsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	now := time.Now()
	f.Service.SetClock(func() time.Time { return now })

	f.Orders.AddOrder(&domain.Order{
		ClientID: 1, Status: domain.OrderStatusPending,
		CreatedAt:  now.Add(-3 * time.Hour),
		FirstBidAt: now.Add(-2 * time.Hour),
	})
	if _, err := f.Bids.InsertIfAbsent(context.Background(), 1, 10, 8); err != nil {
		t.Fatalf("seed bid: %v", err)
	}

	if _, err := f.Service.RestoreTimers(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	order, err := f.Service.GetOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.CancelledBy != domain.CancelReasonSelectionTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonSelectionTimer, order.CancelledBy)
	}
}

func TestRestoreTimers_ExpiredStale_CancelsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	now := time.Now()
	f.Service.SetClock(func() time.Time { return now })

	f.Orders.AddOrder(&domain.Order{
		ClientID: 1, DriverID: 10, Status: domain.OrderStatusAccepted,
		CreatedAt:  now.Add(-4 * time.Hour),
		AcceptedAt: now.Add(-2 * time.Hour),
	})

	if _, err := f.Service.RestoreTimers(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	order, err := f.Service.GetOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if order.CancelledBy != domain.CancelReasonStaleTimer {
		t.Errorf("expected cancel reason %q, got %q", domain.CancelReasonStaleTimer, order.CancelledBy)
	}
}

func TestRestoreTimers_RemainingBudget_ReArmsTimers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	now := time.Now()
	f.Service.SetClock(func() time.Time { return now })

	// Pending with no bids, half the unclaimed window used.
	f.Orders.AddOrder(&domain.Order{
		ClientID: 1, Status: domain.OrderStatusPending,
		CreatedAt: now.Add(-30 * time.Minute),
	})
	// Pending with a bid, selection window barely started.
	f.Orders.AddOrder(&domain.Order{
		ClientID: 2, Status: domain.OrderStatusPending,
		CreatedAt:  now.Add(-30 * time.Minute),
		FirstBidAt: now.Add(-time.Minute),
	})
	if _, err := f.Bids.InsertIfAbsent(context.Background(), 2, 10, 8); err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	// Accepted, stale window running.
	f.Orders.AddOrder(&domain.Order{
		ClientID: 3, DriverID: 11, Status: domain.OrderStatusAccepted,
		CreatedAt:  now.Add(-30 * time.Minute),
		AcceptedAt: now.Add(-10 * time.Minute),
	})

	restored, err := f.Service.RestoreTimers(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if restored != 3 {
		t.Errorf("expected 3 orders processed, got %d", restored)
	}

	wantPhases := map[int64]domain.TimerPhase{
		1: domain.PhaseUnclaimed,
		2: domain.PhaseSelection,
		3: domain.PhaseStale,
	}
	for orderID, want := range wantPhases {
		phase, live := f.Timers.Active(orderID)
		if !live || phase != want {
			t.Errorf("order %d: expected live %s timer, got phase=%s live=%v", orderID, want, phase, live)
		}
	}

	// None of the orders moved.
	for orderID := int64(1); orderID <= 3; orderID++ {
		order, err := f.Service.GetOrder(context.Background(), orderID)
		if err != nil {
			t.Fatalf("get order %d: %v", orderID, err)
		}
		if order.Status.IsTerminal() {
			t.Errorf("order %d: expected non-terminal status, got %s", orderID, order.Status)
		}
	}
}

func TestRestoreTimers_TerminalOrders_Ignored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, longTimeouts)
	now := time.Now()
	f.Service.SetClock(func() time.Time { return now })

	f.Orders.AddOrder(&domain.Order{
		ClientID: 1, DriverID: 10, Status: domain.OrderStatusCompleted,
		CreatedAt: now.Add(-5 * time.Hour),
	})
	f.Orders.AddOrder(&domain.Order{
		ClientID: 2, Status: domain.OrderStatusCancelled,
		CreatedAt: now.Add(-5 * time.Hour), CancelledBy: "client_2",
	})

	restored, err := f.Service.RestoreTimers(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if restored != 0 {
		t.Errorf("expected 0 orders processed, got %d", restored)
	}
	if f.Timers.Len() != 0 {
		t.Errorf("expected no live timers, got %d", f.Timers.Len())
	}
}
