package chanx

import (
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the initial chunk size of a stream channel.
const DefaultBufferSize = 16384

// chunkSize carries the BufferSize setting shared by stream channels.
type chunkSize struct {
	n atomic.Int64
}

// BufferSize returns the chunk size used by the stream read helpers.
func (s *chunkSize) BufferSize() int {
	if n := s.n.Load(); n > 0 {
		return int(n)
	}
	return DefaultBufferSize
}

// SetBufferSize sets the chunk size. Values below 1 restore the default.
func (s *chunkSize) SetBufferSize(n int) {
	s.n.Store(int64(max(n, 0)))
}

// BufferChannel is an in-memory byte stream. Writes append; reads
// consume from a moving offset. It is ready while unread bytes remain or
// once closed. Closing discards unread bytes.
type BufferChannel struct {
	chunkSize

	mon    monitor
	buf    []byte
	ofs    int
	closed bool
}

// NewBufferChannel returns an empty open buffer.
func NewBufferChannel() *BufferChannel {
	return &BufferChannel{}
}

func (c *BufferChannel) Close() {
	c.mon.lock()
	defer c.mon.unlock()
	c.buf = nil
	c.ofs = 0
	c.closed = true
	c.mon.broadcast()
}

func (c *BufferChannel) IsClosed() bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.closed
}

func (c *BufferChannel) IsAsync() bool  { return true }
func (c *BufferChannel) IsShared() bool { return false }
func (c *BufferChannel) Kind() Kind     { return KindStream }

// Read copies up to len(p) unread bytes into p. Once at least half of
// the buffer has been consumed the unread tail is moved to the front.
func (c *BufferChannel) Read(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed {
		return 0
	}

	n := copy(p, c.buf[c.ofs:])
	c.ofs += n
	switch {
	case c.ofs == len(c.buf):
		c.buf = c.buf[:0]
		c.ofs = 0
	case 2*c.ofs >= len(c.buf):
		c.buf = c.buf[:copy(c.buf, c.buf[c.ofs:])]
		c.ofs = 0
	}
	return n
}

// Write appends p. It returns false if the channel is closed.
func (c *BufferChannel) Write(p []byte) bool {
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed {
		return false
	}
	c.buf = append(c.buf, p...)
	if c.ofs < len(c.buf) {
		c.mon.broadcast()
	}
	return true
}

// WriteString appends s. It returns false if the channel is closed.
func (c *BufferChannel) WriteString(s string) bool {
	c.mon.lock()
	defer c.mon.unlock()
	if c.closed {
		return false
	}
	c.buf = append(c.buf, s...)
	if c.ofs < len(c.buf) {
		c.mon.broadcast()
	}
	return true
}

// Clear discards unread bytes.
func (c *BufferChannel) Clear() {
	c.mon.lock()
	defer c.mon.unlock()
	c.buf = c.buf[:0]
	c.ofs = 0
}

// Len returns the number of unread bytes.
func (c *BufferChannel) Len() int {
	c.mon.lock()
	defer c.mon.unlock()
	return len(c.buf) - c.ofs
}

func (c *BufferChannel) WaitFor(d time.Duration) bool {
	c.mon.lock()
	defer c.mon.unlock()
	return c.mon.wait(d, func() bool { return c.closed || c.ofs < len(c.buf) })
}
