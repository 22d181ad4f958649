package service

import "dispatch/internal/domain"

// MatchAction is the decision the matching policy takes on a new bid.
type MatchAction int

const (
	// WaitForClient leaves the choice to the client within the selection window.
	WaitForClient MatchAction = iota
	// AutoAccept assigns the bidding driver without client involvement.
	AutoAccept
)

// MatchDecision carries the policy outcome; DriverID is set for AutoAccept.
type MatchDecision struct {
	Action   MatchAction
	DriverID int64
}

// Decide applies the bid matching policy: when auto-accept is enabled and the
// order has exactly one bid, that driver is accepted immediately; every other
// combination waits for the client. Pure function, no side effects.
func Decide(bids []*domain.Bid, autoAcceptEnabled bool) MatchDecision {
	if autoAcceptEnabled && len(bids) == 1 {
		return MatchDecision{Action: AutoAccept, DriverID: bids[0].DriverID}
	}
	return MatchDecision{Action: WaitForClient}
}
