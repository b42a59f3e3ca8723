package poll

import (
	"context"
	"time"
)

// Default interval bounds used by [DefaultBackoff].
const (
	DefaultMin = time.Microsecond
	DefaultMax = time.Millisecond
)

// DefaultBackoff sleeps between 1µs and 1ms.
var DefaultBackoff = Backoff{min: DefaultMin, max: DefaultMax}

// Backoff retries a predicate with exponentially growing sleeps.
// The zero value behaves like [DefaultBackoff].
type Backoff struct {
	min time.Duration
	max time.Duration
}

// NewBackoff returns a Backoff whose sleep interval starts at min and
// doubles up to max.
//
// Panics if min <= 0 or max < min.
func NewBackoff(min, max time.Duration) Backoff {
	if min <= 0 {
		panic("poll: NewBackoff requires min > 0")
	}
	if max < min {
		panic("poll: NewBackoff requires max >= min")
	}
	return Backoff{min: min, max: max}
}

// Min returns the first sleep interval.
func (b Backoff) Min() time.Duration {
	if b.min <= 0 {
		return DefaultMin
	}
	return b.min
}

// Max returns the ceiling on the sleep interval.
func (b Backoff) Max() time.Duration {
	if b.max <= 0 {
		return DefaultMax
	}
	return b.max
}

// Sleeper returns a fresh [Sleeper] using b's bounds.
func (b Backoff) Sleeper() *Sleeper {
	return &Sleeper{b: b, cur: b.Min()}
}

// Wait blocks until pred returns true.
func (b Backoff) Wait(pred func() bool) {
	s := b.Sleeper()
	for !pred() {
		s.Sleep()
	}
}

// WaitFor blocks until pred returns true or timeout elapses. It reports
// the last value of pred.
func (b Backoff) WaitFor(pred func() bool, timeout time.Duration) bool {
	return b.WaitUntil(pred, time.Now().Add(timeout))
}

// WaitUntil blocks until pred returns true or the deadline passes. Sleeps
// are truncated so that the deadline is never overshot by more than one
// scheduler tick.
func (b Backoff) WaitUntil(pred func() bool, deadline time.Time) bool {
	s := b.Sleeper()
	for !pred() {
		left := time.Until(deadline)
		if left <= 0 {
			return false
		}
		s.SleepAtMost(left)
	}
	return true
}

// WaitContext blocks until pred returns true or ctx is done.
func (b Backoff) WaitContext(ctx context.Context, pred func() bool) error {
	s := b.Sleeper()
	for !pred() {
		if err := ctx.Err(); err != nil {
			return err
		}
		timer := time.NewTimer(s.next())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// Sleeper tracks the current interval of one polling loop. It is not safe
// for concurrent use; each loop owns its own Sleeper.
type Sleeper struct {
	b   Backoff
	cur time.Duration
}

// Interval returns the duration of the next Sleep.
func (s *Sleeper) Interval() time.Duration {
	return s.cur
}

// Sleep sleeps for the current interval, then doubles it up to the maximum.
func (s *Sleeper) Sleep() {
	time.Sleep(s.next())
}

// SleepAtMost sleeps for the current interval or limit, whichever is
// shorter, and grows the interval as Sleep does.
func (s *Sleeper) SleepAtMost(limit time.Duration) {
	d := s.next()
	if limit < d {
		d = limit
	}
	time.Sleep(d)
}

// Reset drops the interval back to the minimum.
func (s *Sleeper) Reset() {
	s.cur = s.b.Min()
}

func (s *Sleeper) next() time.Duration {
	d := s.cur
	s.cur = min(2*s.cur, s.b.Max())
	return d
}
