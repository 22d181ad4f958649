package timer

import (
	"sync"
	"time"

	"dispatch/internal/domain"
)

// Registry owns the single live phase timer each order may have. Starting a
// timer for an order replaces whatever timer that order had before; Cancel
// removes the handle before returning. The underlying time.AfterFunc callback
// may still be mid-flight when either happens, so a fired callback first
// checks it is still the registered one and otherwise does nothing. Firing
// handlers must additionally re-check persisted order status, this registry
// only guarantees handle bookkeeping.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	phase domain.TimerPhase
	t     *time.Timer
}

// FireFunc handles a phase timer firing for an order.
type FireFunc func(orderID int64, phase domain.TimerPhase)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]*entry)}
}

// Start schedules fire after d for the order, replacing any live timer.
func (r *Registry) Start(orderID int64, phase domain.TimerPhase, d time.Duration, fire FireFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[orderID]; ok {
		prev.t.Stop()
		delete(r.entries, orderID)
	}

	e := &entry{phase: phase}
	e.t = time.AfterFunc(d, func() {
		r.mu.Lock()
		if cur, ok := r.entries[orderID]; !ok || cur != e {
			// Cancelled or replaced while this callback was pending.
			r.mu.Unlock()
			return
		}
		delete(r.entries, orderID)
		r.mu.Unlock()

		fire(orderID, phase)
	})
	r.entries[orderID] = e
}

// Cancel stops the order's live timer, if any. Returns true when one was live.
func (r *Registry) Cancel(orderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[orderID]
	if !ok {
		return false
	}
	e.t.Stop()
	delete(r.entries, orderID)
	return true
}

// Active reports the phase of the order's live timer, if any.
func (r *Registry) Active(orderID int64) (domain.TimerPhase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[orderID]
	if !ok {
		return "", false
	}
	return e.phase, true
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Shutdown stops every live timer.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		e.t.Stop()
		delete(r.entries, id)
	}
}
