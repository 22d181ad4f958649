package domain

import "time"

// BidStatus represents the current status of a driver's bid.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// Bid represents a driver's offer to take a pending order, carrying the
// driver's own arrival-time estimate. At most one bid exists per
// (order, driver) pair.
type Bid struct {
	ID             int64
	OrderID        int64
	DriverID       int64
	ArrivalMinutes int
	Status         BidStatus
	CreatedAt      time.Time
}
