package tests

import (
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
	"dispatch/internal/timer"
)

// fixture bundles a DispatchService with the mocks behind it.
type fixture struct {
	Service   *service.DispatchService
	Orders    *MockOrderRepository
	Bids      *MockBidRepository
	Drivers   *MockDriverRepository
	Acceptor  *MockBidAcceptor
	Cooldowns *MockCooldownStore
	Settings  *MockSettingsStore
	Timers    *timer.Registry
	Sink      *CaptureSink
}

// longTimeouts keeps every phase timer from firing during a test.
var longTimeouts = service.DispatchConfig{
	UnclaimedTimeout: time.Hour,
	SelectionTimeout: time.Hour,
	StaleTimeout:     time.Hour,
	OrderCooldown:    time.Hour,
}

func newFixture(t *testing.T, cfg service.DispatchConfig) *fixture {
	t.Helper()

	orders := NewMockOrderRepository()
	bids := NewMockBidRepository()
	drivers := NewMockDriverRepository()
	acceptor := NewMockBidAcceptor(orders, bids)
	cooldowns := NewMockCooldownStore()
	settings := NewMockSettingsStore()
	timers := timer.NewRegistry()
	t.Cleanup(timers.Shutdown)
	sink := NewCaptureSink()

	svc := service.NewDispatchService(
		orders, bids, drivers, acceptor,
		cooldowns, settings, timers,
		service.NewNotificationService(sink),
		cfg,
	)

	return &fixture{
		Service:   svc,
		Orders:    orders,
		Bids:      bids,
		Drivers:   drivers,
		Acceptor:  acceptor,
		Cooldowns: cooldowns,
		Settings:  settings,
		Timers:    timers,
		Sink:      sink,
	}
}

// addEligibleDriver seeds a driver that passes the broadcast filter.
func (f *fixture) addEligibleDriver(id int64) {
	f.Drivers.AddDriver(&domain.Driver{
		ID:            id,
		Name:          "driver",
		ShiftOpened:   true,
		VerifiedUntil: time.Now().Add(24 * time.Hour),
	})
}

// waitFor polls cond until true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
