package chanx

import "time"

type valueStatus int8

const (
	valueClosed valueStatus = iota - 1
	valueSame
	valueNew
)

// ValueChannel holds a single value and is ready when that value has
// changed since the last read. Writing a value equal to the stored one
// is a no-op, so readers only ever see actual changes.
type ValueChannel[T comparable] struct {
	mon    monitor
	value  T
	status valueStatus
}

// NewValueChannel returns an open channel holding initial. The initial
// value is not reported as a change.
func NewValueChannel[T comparable](initial T) *ValueChannel[T] {
	return &ValueChannel[T]{value: initial}
}

func (c *ValueChannel[T]) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.status = valueClosed
	c.mon.broadcast()
}

func (c *ValueChannel[T]) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.status == valueClosed
}

func (c *ValueChannel[T]) IsAsync() bool  { return true }
func (c *ValueChannel[T]) IsShared() bool { return true }
func (c *ValueChannel[T]) Kind() Kind     { return KindMessage }

// Write stores v and wakes waiters if it differs from the current value.
// It returns false only when the channel is closed.
func (c *ValueChannel[T]) Write(v T) bool {
	c.mon.lock()
	defer c.mon.unlock()
	if c.status == valueClosed {
		return false
	}
	if v == c.value {
		return true
	}
	c.value = v
	c.status = valueNew
	c.mon.broadcast()
	return true
}

// Read returns the value if it changed since the last read.
func (c *ValueChannel[T]) Read() (T, bool) {
	c.mon.lock()
	defer c.mon.unlock()
	if c.status != valueNew {
		var zero T
		return zero, false
	}
	c.status = valueSame
	return c.value, true
}

// Clear marks the current value as seen without returning it.
func (c *ValueChannel[T]) Clear() {
	c.mon.lock()
	defer c.mon.unlock()
	if c.status == valueNew {
		c.status = valueSame
	}
}

func (c *ValueChannel[T]) WaitFor(d time.Duration) bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.mon.wait(d, func() bool { return c.status != valueSame })
}
