package chanx

import (
	"time"

	"github.com/gammazero/deque"
)

// QueueChannel is an unbounded FIFO. It is ready while it holds values
// or once closed. Writes after Close are rejected and values still
// queued at Close are no longer readable.
type QueueChannel[T any] struct {
	mon    monitor
	queue  deque.Deque[T]
	closed bool
}

// NewQueueChannel returns an empty open queue.
func NewQueueChannel[T any]() *QueueChannel[T] {
	return &QueueChannel[T]{}
}

func (c *QueueChannel[T]) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.closed = true
	c.mon.broadcast()
}

func (c *QueueChannel[T]) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.closed
}

func (c *QueueChannel[T]) IsAsync() bool  { return true }
func (c *QueueChannel[T]) IsShared() bool { return true }
func (c *QueueChannel[T]) Kind() Kind     { return KindMessage }

// Write appends v. It returns false if the queue is closed.
func (c *QueueChannel[T]) Write(v T) bool {
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed {
		return false
	}
	c.queue.PushBack(v)
	c.mon.broadcast()
	return true
}

// Read pops the oldest value.
func (c *QueueChannel[T]) Read() (T, bool) {
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed || c.queue.Len() == 0 {
		var zero T
		return zero, false
	}
	return c.queue.PopFront(), true
}

// Clear discards every queued value.
func (c *QueueChannel[T]) Clear() {
	c.mon.lock()
	defer c.mon.unlock()
	c.queue.Clear()
}

// Len returns the number of queued values.
func (c *QueueChannel[T]) Len() int {
	c.mon.lock()
	defer c.mon.unlock()
	return c.queue.Len()
}

func (c *QueueChannel[T]) WaitFor(d time.Duration) bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.mon.wait(d, func() bool { return c.closed || c.queue.Len() > 0 })
}
