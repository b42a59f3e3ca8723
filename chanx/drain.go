package chanx

import (
	"context"

	"github.com/baxromumarov/chanloop/poll"
)

// Drain reads every value c currently holds without blocking and returns
// them in read order. For a [GeneratorChannel], which is never empty,
// Drain stops after limit values; limit <= 0 means no limit and must only
// be used with channels that run dry.
func Drain[T any](c MessageChannel[T], limit int) []T {
	var out []T
	for limit <= 0 || len(out) < limit {
		v, ok := c.Read()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Feed copies values from in into q in its own goroutine. When in is
// closed Feed waits for readers to empty q and then closes it, so no value
// is lost to the close. Cancelling ctx closes q at once. The returned
// channel is closed when the goroutine exits.
//
// If in is nil, q is closed immediately.
func Feed[T any](ctx context.Context, in <-chan T, q *QueueChannel[T]) <-chan struct{} {
	done := make(chan struct{})
	if in == nil {
		q.Close()
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer q.Close()
		for {
			select {
			case v, ok := <-in:
				if !ok {
					_ = poll.DefaultBackoff.WaitContext(ctx, func() bool {
						return q.Len() == 0 || q.IsClosed()
					})
					return
				}
				if !q.Write(v) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
