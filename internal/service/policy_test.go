package service

import (
	"testing"

	"dispatch/internal/domain"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	one := []*domain.Bid{{OrderID: 1, DriverID: 42, ArrivalMinutes: 5}}
	two := []*domain.Bid{
		{OrderID: 1, DriverID: 42, ArrivalMinutes: 5},
		{OrderID: 1, DriverID: 43, ArrivalMinutes: 8},
	}

	tests := []struct {
		name       string
		bids       []*domain.Bid
		autoAccept bool
		want       MatchDecision
	}{
		{"no bids, auto-accept off", nil, false, MatchDecision{Action: WaitForClient}},
		{"no bids, auto-accept on", nil, true, MatchDecision{Action: WaitForClient}},
		{"single bid, auto-accept off", one, false, MatchDecision{Action: WaitForClient}},
		{"single bid, auto-accept on", one, true, MatchDecision{Action: AutoAccept, DriverID: 42}},
		{"two bids, auto-accept on", two, true, MatchDecision{Action: WaitForClient}},
		{"two bids, auto-accept off", two, false, MatchDecision{Action: WaitForClient}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Decide(tt.bids, tt.autoAccept)
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
