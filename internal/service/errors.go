package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidClientID is returned when the client id is missing.
	ErrInvalidClientID = errors.New("invalid client id")

	// ErrInvalidDriverID is returned when the driver id is missing.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidOrderID is returned when the order id is missing.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidAddress is returned when pickup or dropoff is empty.
	ErrInvalidAddress = errors.New("invalid pickup or dropoff address")

	// ErrInvalidPassengers is returned when the passenger count is out of range.
	ErrInvalidPassengers = errors.New("invalid passenger count")

	// ErrInvalidArrivalMinutes is returned when the arrival estimate is out of range.
	ErrInvalidArrivalMinutes = errors.New("invalid arrival minutes")

	// ErrInvalidRating is returned when a rating score is outside 1..5.
	ErrInvalidRating = errors.New("invalid rating score")

	// ErrActiveOrderExists is returned when the client already has a pending or accepted order.
	ErrActiveOrderExists = errors.New("client already has an active order")

	// ErrOrderClosed is returned when the order left the pending state.
	ErrOrderClosed = errors.New("order already closed")

	// ErrAlreadyTerminal is returned when the order is completed or cancelled.
	ErrAlreadyTerminal = errors.New("order already in a terminal state")

	// ErrDuplicateBid is returned when the driver already bid on the order.
	ErrDuplicateBid = errors.New("driver already bid on this order")

	// ErrDriverBusy is returned when the driver already has an accepted order.
	ErrDriverBusy = errors.New("driver already has an accepted order")

	// ErrNotOwner is returned when the caller does not own the order.
	ErrNotOwner = errors.New("order belongs to another client")

	// ErrNotAssigned is returned when the caller is not the assigned driver.
	ErrNotAssigned = errors.New("driver not assigned to this order")

	// ErrWrongState is returned when the order is not in the state the operation requires.
	ErrWrongState = errors.New("order not in required state")

	// ErrOwnOrder is returned when a driver bids on their own order.
	ErrOwnOrder = errors.New("cannot bid on own order")

	// ErrNoBidFromDriver is returned when the selected driver never bid.
	ErrNoBidFromDriver = errors.New("driver did not bid on this order")

	// ErrOrderNotCompleted is returned when rating an order that is not completed.
	ErrOrderNotCompleted = errors.New("order not completed")

	// ErrNotParticipant is returned when the rater was not a party to the order.
	ErrNotParticipant = errors.New("user was not a party to this order")

	// ErrAlreadyRated is returned when the rater already rated the order.
	ErrAlreadyRated = errors.New("order already rated by this user")
)

// CooldownError is returned when a client creates orders faster than the
// configured cooldown allows.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("order cooldown active, retry in %s", e.Remaining.Round(time.Second))
}
