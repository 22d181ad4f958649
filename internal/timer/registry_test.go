package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/domain"
)

func TestRegistry_FiresAfterDelay(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	fired := make(chan domain.TimerPhase, 1)

	r.Start(1, domain.PhaseUnclaimed, 10*time.Millisecond, func(orderID int64, phase domain.TimerPhase) {
		fired <- phase
	})

	select {
	case phase := <-fired:
		if phase != domain.PhaseUnclaimed {
			t.Errorf("expected phase %s, got %s", domain.PhaseUnclaimed, phase)
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	if _, ok := r.Active(1); ok {
		t.Error("fired timer should be removed from the registry")
	}
}

func TestRegistry_CancelPreventsFire(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var fires int32

	r.Start(1, domain.PhaseSelection, 20*time.Millisecond, func(orderID int64, phase domain.TimerPhase) {
		atomic.AddInt32(&fires, 1)
	})

	if !r.Cancel(1) {
		t.Fatal("expected a live timer to cancel")
	}

	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 0 {
		t.Errorf("cancelled timer fired %d times", n)
	}
	if r.Cancel(1) {
		t.Error("second cancel should find nothing")
	}
}

func TestRegistry_StartReplacesPreviousPhase(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	fired := make(chan domain.TimerPhase, 2)

	r.Start(7, domain.PhaseUnclaimed, 500*time.Millisecond, func(orderID int64, phase domain.TimerPhase) {
		fired <- phase
	})
	r.Start(7, domain.PhaseSelection, 10*time.Millisecond, func(orderID int64, phase domain.TimerPhase) {
		fired <- phase
	})

	if phase, ok := r.Active(7); !ok || phase != domain.PhaseSelection {
		t.Fatalf("expected live selection timer, got %q (live=%v)", phase, ok)
	}

	select {
	case phase := <-fired:
		if phase != domain.PhaseSelection {
			t.Errorf("expected selection to fire, got %s", phase)
		}
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}

	// The replaced unclaimed timer must never fire.
	select {
	case phase := <-fired:
		t.Errorf("replaced timer fired with phase %s", phase)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestRegistry_ShutdownStopsAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var fires int32

	for id := int64(1); id <= 5; id++ {
		r.Start(id, domain.PhaseStale, 20*time.Millisecond, func(orderID int64, phase domain.TimerPhase) {
			atomic.AddInt32(&fires, 1)
		})
	}
	if r.Len() != 5 {
		t.Fatalf("expected 5 live timers, got %d", r.Len())
	}

	r.Shutdown()

	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 0 {
		t.Errorf("%d timers fired after shutdown", n)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}
