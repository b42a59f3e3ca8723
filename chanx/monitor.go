package chanx

import (
	"sync"
	"time"
)

// monitor is a mutex plus a broadcast wake-up, the timed equivalent of a
// condition variable. Waiters grab the current wake channel under mu;
// broadcast closes it so every waiter re-checks its predicate.
//
// The zero value is ready to use. The wake channel is allocated only when
// someone actually waits.
type monitor struct {
	mu   sync.Mutex
	wake chan struct{}
}

func (m *monitor) lock()   { m.mu.Lock() }
func (m *monitor) unlock() { m.mu.Unlock() }

// broadcast wakes all waiters. Caller holds mu.
func (m *monitor) broadcast() {
	if m.wake != nil {
		close(m.wake)
		m.wake = nil
	}
}

// wait blocks until ready returns true or d elapses, and returns the last
// value of ready. Caller holds mu on entry; mu is held again on return.
// A non-positive d checks ready once.
func (m *monitor) wait(d time.Duration, ready func() bool) bool {
	if ready() {
		return true
	}
	if d <= 0 {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		if m.wake == nil {
			m.wake = make(chan struct{})
		}
		wake := m.wake

		m.mu.Unlock()
		select {
		case <-wake:
			m.mu.Lock()
			if ready() {
				return true
			}
		case <-timer.C:
			m.mu.Lock()
			return ready()
		}
	}
}
