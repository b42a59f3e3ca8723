package chanx

import "time"

// TimerChannel becomes ready once per interval on a fixed grid.
//
// Missed ticks are not queued: a consumer that stalls for several
// intervals sees one tick, after which the grid resumes from the next
// tick still in the future.
type TimerChannel struct {
	mon    monitor
	next   time.Time
	delta  time.Duration
	closed bool
}

// NewTimerChannel returns a timer whose first tick is one interval from
// now. A negative interval is treated as zero, which makes the channel
// always ready.
func NewTimerChannel(interval time.Duration) *TimerChannel {
	interval = max(interval, 0)
	return &TimerChannel{
		next:  time.Now().Add(interval),
		delta: interval,
	}
}

func (c *TimerChannel) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.closed = true
	c.mon.broadcast()
}

func (c *TimerChannel) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.closed
}

func (c *TimerChannel) IsAsync() bool  { return true }
func (c *TimerChannel) IsShared() bool { return true }
func (c *TimerChannel) Kind() Kind     { return KindEvent }

// Interval returns the tick spacing.
func (c *TimerChannel) Interval() time.Duration {
	return c.delta
}

// Next returns the time of the next tick.
func (c *TimerChannel) Next() time.Time {
	c.mon.lock()
	defer c.mon.unlock()
	return c.next
}

// Flush skips every tick that has already elapsed without firing.
func (c *TimerChannel) Flush() {
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed {
		return
	}
	now := time.Now()
	if now.Before(c.next) {
		return
	}
	c.advance(now)
}

// WaitFor fires if a tick is due, waiting up to d for one. Concurrent
// waiters share each tick.
func (c *TimerChannel) WaitFor(d time.Duration) bool {
	c.mon.lock()
	defer c.mon.unlock()

	closed := func() bool { return c.closed }
	deadline := time.Now().Add(d)
	for {
		if c.closed {
			return true
		}
		now := time.Now()
		if !now.Before(c.next) {
			c.advance(now)
			return true
		}
		if !now.Before(deadline) {
			return false
		}
		c.mon.wait(min(c.next.Sub(now), deadline.Sub(now)), closed)
	}
}

// advance moves next past now in whole intervals. Caller holds the lock.
// A next still in the future moves by exactly one interval.
func (c *TimerChannel) advance(now time.Time) {
	if c.delta <= 0 {
		c.next = now
		return
	}
	skip := max(now.Sub(c.next)/c.delta, 0)
	c.next = c.next.Add(c.delta * (skip + 1))
}
