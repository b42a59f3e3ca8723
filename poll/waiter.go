package poll

import (
	"context"
	"time"
)

// Waiter is anything that can block until it becomes ready.
//
// WaitFor blocks for at most d and reports whether the waiter became ready.
// Implementations must return immediately when d <= 0.
type Waiter interface {
	WaitFor(d time.Duration) bool
}

// Slice is the longest single WaitFor call issued by the blocking helpers.
// Indefinite waits are expressed as a loop of bounded waits.
const Slice = time.Second

// Poll checks w once without blocking.
func Poll(w Waiter) bool {
	return w.WaitFor(0)
}

// Wait blocks until w is ready.
func Wait(w Waiter) {
	for !w.WaitFor(Slice) {
	}
}

// WaitUntil blocks until w is ready or the deadline passes.
func WaitUntil(w Waiter, deadline time.Time) bool {
	return w.WaitFor(time.Until(deadline))
}

// WaitContext blocks until w is ready or ctx is done. It returns nil when
// w became ready and ctx.Err() otherwise.
//
// A waiter cannot be interrupted mid-wait, so cancellation is observed at
// most one quantum late. The quantum is the time left before the context
// deadline, capped at 50ms.
func WaitContext(ctx context.Context, w Waiter) error {
	const quantum = 50 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := quantum
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < d {
				d = left
			}
		}
		if w.WaitFor(d) {
			return nil
		}
	}
}
