package domain

import (
	"fmt"
	"time"
)

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the status is a final one.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderSource tags the channel an order arrived through.
type OrderSource string

const (
	OrderSourceAPI OrderSource = "api"
	OrderSourceWeb OrderSource = "web"
)

// Cancellation reason tags. The timer and availability tags are fixed strings;
// actor cancellations carry the actor id (see CancelledByClient and friends).
// Reporting parses these back, so the format must stay stable.
const (
	CancelReasonNoDrivers      = "no_drivers"
	CancelReasonUnclaimedTimer = "unclaimed_timer"
	CancelReasonSelectionTimer = "selection_timer"
	CancelReasonStaleTimer     = "stale_timer"
)

// CancelledByClient returns the reason tag for an explicit client cancellation.
func CancelledByClient(clientID int64) string {
	return fmt.Sprintf("client_%d", clientID)
}

// CancelledByDriver returns the reason tag for an explicit driver cancellation.
func CancelledByDriver(driverID int64) string {
	return fmt.Sprintf("driver_%d", driverID)
}

// CancelledByAdmin returns the reason tag for an admin cancellation.
func CancelledByAdmin(adminID int64) string {
	return fmt.Sprintf("admin_%d", adminID)
}

// Order represents a client's ride request in the system.
//
// DriverID is zero until the order is accepted; it is non-zero exactly when
// the status is accepted or completed. FirstBidAt and AcceptedAt are the
// reference timestamps the selection and stale timers are measured from.
type Order struct {
	ID            int64
	ClientID      int64
	DriverID      int64
	Pickup        string
	Dropoff       string
	Comment       string
	Passengers    int
	Status        OrderStatus
	Source        OrderSource
	DriverArrived bool
	CreatedAt     time.Time
	FirstBidAt    time.Time
	AcceptedAt    time.Time
	CancelledBy   string
}
