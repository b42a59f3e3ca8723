package chanx

import (
	"bytes"
	"context"

	"github.com/baxromumarov/chanloop/poll"
)

// ReadTo appends at most one chunk of c.BufferSize() bytes to dst and
// returns the number of bytes appended. It never blocks.
func ReadTo(c StreamChannel, dst *bytes.Buffer) int {
	size := c.BufferSize()
	dst.Grow(size)
	chunk := dst.AvailableBuffer()[:size]
	n := c.Read(chunk)
	dst.Write(chunk[:n])
	return n
}

// ReadString reads at most one chunk from c. It never blocks.
func ReadString(c StreamChannel) string {
	chunk := make([]byte, c.BufferSize())
	n := c.Read(chunk)
	return string(chunk[:n])
}

// ReadAll reads from c until it is closed. It blocks, so it must not be
// called from a dispatch callback.
func ReadAll(c StreamChannel) []byte {
	var buf bytes.Buffer
	for {
		if !c.WaitFor(poll.Slice) {
			continue
		}
		if c.IsClosed() {
			return buf.Bytes()
		}
		ReadTo(c, &buf)
	}
}

// ReadAllContext is [ReadAll] with cancellation. On cancellation it
// returns the bytes read so far together with ctx.Err().
func ReadAllContext(ctx context.Context, c StreamChannel) ([]byte, error) {
	var buf bytes.Buffer
	for {
		if err := Wait(ctx, c); err != nil {
			return buf.Bytes(), err
		}
		if c.IsClosed() {
			return buf.Bytes(), nil
		}
		ReadTo(c, &buf)
	}
}
