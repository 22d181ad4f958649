package domain

import "time"

// Driver holds the availability subset of a driver record. Onboarding and
// identity are owned elsewhere; dispatch only reads shift and verification
// state to decide who receives a broadcast.
type Driver struct {
	ID            int64
	Name          string
	CarBrand      string
	CarNumber     string
	ShiftOpened   bool
	VerifiedUntil time.Time
	Banned        bool
}

// Eligible reports whether the driver may receive order broadcasts at the
// given instant: shift open, verification current, not banned.
func (d *Driver) Eligible(now time.Time) bool {
	if d.Banned || !d.ShiftOpened {
		return false
	}
	return !d.VerifiedUntil.IsZero() && !now.After(d.VerifiedUntil)
}
