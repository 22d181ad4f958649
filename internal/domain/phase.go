package domain

// TimerPhase tags the single live timeout an order may own at any moment.
type TimerPhase string

const (
	// PhaseUnclaimed bounds how long an order may sit with zero bids.
	PhaseUnclaimed TimerPhase = "unclaimed"
	// PhaseSelection bounds how long a client may deliberate once bids exist.
	PhaseSelection TimerPhase = "selection"
	// PhaseStale bounds how long an accepted ride may remain unfinished.
	PhaseStale TimerPhase = "stale"
)
