// Package event provides a manual-reset, state-retaining synchronization
// primitive: the building block every blocking operation in the pipeline
// core is implemented on top of.
//
// A plain condition variable loses a signal that arrives before any waiter
// is parked: if nobody is waiting when Signal is called, the wakeup is
// gone. Event instead latches its state, so a Signal issued with no
// waiters present is still observed by the next Wait.
package event

import "sync"

// Event is a boolean, manual-reset, broadcast-on-signal flag.
//
// Signal sets the latch and wakes every goroutine currently parked in
// Wait. Reset clears the latch. Wait blocks until the latch is observed
// set; it does not clear it — callers that want edge-triggered behavior
// must call Reset themselves. Multiple concurrent Waits following a
// single Signal are all released (broadcast semantics), matching the
// manual-reset condition variable this type is modeled on.
//
// The zero value is not usable; construct with New.
type Event struct {
	mu      sync.Mutex
	cond    *sync.Cond
	latched bool
	closed  bool
}

// New constructs an Event with an initially unlatched state.
func New() *Event {
	e := &Event{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Signal latches the event and wakes every current waiter. Calling Signal
// repeatedly without an intervening Reset is a no-op beyond the first
// call: the event stays latched and no additional waiters are released
// because none remain parked.
func (e *Event) Signal() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.latched = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Reset clears the latch. No goroutine is woken by Reset.
func (e *Event) Reset() {
	e.mu.Lock()
	e.latched = false
	e.mu.Unlock()
}

// Wait blocks until the event has been latched, or until Close is called
// on it. It returns true if it woke because the event was (or became)
// latched, and false if it woke only because the event was closed while
// still unlatched — the caller should treat the latter as "no further
// signals are coming" rather than as success.
func (e *Event) Wait() bool {
	e.mu.Lock()
	for !e.latched && !e.closed {
		e.cond.Wait()
	}
	latched := e.latched
	e.mu.Unlock()
	return latched
}

// IsSet reports the current latched state without blocking.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latched
}

// Close releases any goroutines currently parked in Wait and marks the
// event closed. It is safe to call at most once in the normal lifecycle;
// subsequent calls are no-ops. Close does not itself latch the event —
// a waiter released solely by Close observes Wait returning false.
func (e *Event) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.cond.Broadcast()
}
