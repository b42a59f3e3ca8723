package chanx

import (
	"sync/atomic"
	"time"
)

// TrueChannel is always ready until closed.
type TrueChannel struct {
	closed atomic.Bool
}

// NewTrueChannel returns an open TrueChannel.
func NewTrueChannel() *TrueChannel {
	return &TrueChannel{}
}

func (c *TrueChannel) Close()                     { c.closed.Store(true) }
func (c *TrueChannel) IsClosed() bool             { return c.closed.Load() }
func (c *TrueChannel) IsAsync() bool              { return true }
func (c *TrueChannel) IsShared() bool             { return true }
func (c *TrueChannel) Kind() Kind                 { return KindEvent }
func (c *TrueChannel) WaitFor(time.Duration) bool { return true }

// FalseChannel is never ready while open. WaitFor blocks until Close.
type FalseChannel struct {
	mon    monitor
	closed bool
}

// NewFalseChannel returns an open FalseChannel.
func NewFalseChannel() *FalseChannel {
	return &FalseChannel{}
}

func (c *FalseChannel) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.closed = true
	c.mon.broadcast()
}

func (c *FalseChannel) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.closed
}

func (c *FalseChannel) IsAsync() bool  { return true }
func (c *FalseChannel) IsShared() bool { return true }
func (c *FalseChannel) Kind() Kind     { return KindEvent }

func (c *FalseChannel) WaitFor(d time.Duration) bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.mon.wait(d, func() bool { return c.closed })
}
