package chanx

import (
	"context"

	"github.com/baxromumarov/chanloop/poll"
)

// Kind tags the capability shape of a channel.
type Kind int

const (
	KindEvent Kind = iota
	KindMessage
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindMessage:
		return "message"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Channel is a closable resource that reports readiness through WaitFor.
type Channel interface {
	poll.Waiter

	// Close transitions the channel to closed and wakes every waiter.
	// It is idempotent.
	Close()

	// IsClosed reports whether Close has been called. Once true it stays true.
	IsClosed() bool

	// IsAsync reports whether the channel may be driven by a dedicated
	// goroutine, which requires a meaningful blocking WaitFor.
	IsAsync() bool

	// IsShared reports whether the channel may be registered with a
	// dispatcher more than once.
	IsShared() bool

	Kind() Kind
}

// EventChannel delivers readiness only. Kind reports [KindEvent].
type EventChannel interface {
	Channel
}

// MessageChannel delivers one typed value per successful read.
type MessageChannel[T any] interface {
	Channel

	// Read consumes one value. It returns false when no value is
	// available or the channel is closed.
	Read() (T, bool)
}

// StreamChannel delivers raw bytes.
type StreamChannel interface {
	Channel

	// Read copies up to len(p) unread bytes into p and returns the count.
	Read(p []byte) int

	// BufferSize is the chunk size used by [ReadTo] and [ReadString].
	BufferSize() int
	SetBufferSize(n int)
}

// Wait blocks until c is ready or closed, or ctx is done.
func Wait(ctx context.Context, c Channel) error {
	return poll.WaitContext(ctx, c)
}

// Ready checks c once without blocking.
func Ready(c Channel) bool {
	return c.WaitFor(0)
}
