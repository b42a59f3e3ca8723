package chanx

import "time"

// ThrottleChannel is ready at most once per interval, measured from the
// last time it fired rather than on a fixed grid. The first wait fires
// immediately.
type ThrottleChannel struct {
	mon    monitor
	next   time.Time
	delta  time.Duration
	closed bool
}

// NewThrottleChannel returns a throttle with the given minimum spacing.
// A negative interval is treated as zero.
func NewThrottleChannel(interval time.Duration) *ThrottleChannel {
	return &ThrottleChannel{delta: max(interval, 0)}
}

func (c *ThrottleChannel) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.closed = true
	c.mon.broadcast()
}

func (c *ThrottleChannel) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.closed
}

func (c *ThrottleChannel) IsAsync() bool  { return true }
func (c *ThrottleChannel) IsShared() bool { return true }
func (c *ThrottleChannel) Kind() Kind     { return KindEvent }

// Interval returns the minimum spacing between fires.
func (c *ThrottleChannel) Interval() time.Duration {
	return c.delta
}

// WaitFor fires if the interval since the last fire has elapsed, waiting
// up to d for it. Concurrent waiters share one fire per interval.
func (c *ThrottleChannel) WaitFor(d time.Duration) bool {
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
			c.next = now.Add(c.delta)
			return true
		}
		if !now.Before(deadline) {
			return false
		}
		// Another waiter may fire first and push next out again.
		c.mon.wait(min(c.next.Sub(now), deadline.Sub(now)), closed)
	}
}
