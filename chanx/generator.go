package chanx

import (
	"sync"
	"time"
)

// GeneratorChannel produces a value on every read by calling a function.
// It is always ready while open and never blocks, so it cannot be driven
// by a dedicated goroutine. Closing it discards the function.
type GeneratorChannel[T any] struct {
	mu  sync.Mutex
	gen func() T
}

// NewGeneratorChannel wraps gen. A nil gen yields a channel that is
// already closed.
func NewGeneratorChannel[T any](gen func() T) *GeneratorChannel[T] {
	return &GeneratorChannel[T]{gen: gen}
}

func (c *GeneratorChannel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen = nil
}

func (c *GeneratorChannel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == nil
}

func (c *GeneratorChannel[T]) IsAsync() bool              { return false }
func (c *GeneratorChannel[T]) IsShared() bool             { return false }
func (c *GeneratorChannel[T]) Kind() Kind                 { return KindMessage }
func (c *GeneratorChannel[T]) WaitFor(time.Duration) bool { return true }

// Read calls the generator. Calls are serialized.
func (c *GeneratorChannel[T]) Read() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == nil {
		var zero T
		return zero, false
	}
	return c.gen(), true
}
