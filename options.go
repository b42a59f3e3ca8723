package chanloop

import (
	"io"
	"log/slog"
	"time"

	"github.com/baxromumarov/chanloop/poll"
)

// Mode selects how a [Dispatch] drives a registered channel.
type Mode int

const (
	// Sync channels are polled by the goroutine calling [Dispatch.Run];
	// their callbacks run on that goroutine.
	Sync Mode = iota

	// Async channels get a dedicated goroutine that blocks on the
	// channel and runs the callback. The channel must report IsAsync.
	Async
)

func (m Mode) String() string {
	switch m {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return "invalid"
	}
}

func (m Mode) valid() bool {
	return m == Sync || m == Async
}

// discardLogger is used when no logger is configured.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type dispatchConfig struct {
	backoff   poll.Backoff
	asyncPoll time.Duration
	logger    *slog.Logger
}

// DispatchOption configures a [Dispatch].
type DispatchOption func(*dispatchConfig)

func defaultDispatchConfig() dispatchConfig {
	return dispatchConfig{
		backoff:   poll.DefaultBackoff,
		asyncPoll: poll.Slice,
		logger:    discardLogger,
	}
}

// WithDispatchBackoff sets the idle sleep bounds of [Dispatch.Run]. When
// a full pass runs no callback the loop sleeps, starting at min and
// doubling up to max.
//
// Panics if min <= 0 or max < min.
func WithDispatchBackoff(min, max time.Duration) DispatchOption {
	b := poll.NewBackoff(min, max)
	return func(c *dispatchConfig) {
		c.backoff = b
	}
}

// WithAsyncPoll sets the longest single wait issued by an async worker
// before it re-checks whether it has been dropped. Default is one second.
//
// Panics if d <= 0.
func WithAsyncPoll(d time.Duration) DispatchOption {
	if d <= 0 {
		panic("chanloop: WithAsyncPoll requires d > 0")
	}
	return func(c *dispatchConfig) {
		c.asyncPoll = d
	}
}

// WithDispatchLogger sets the logger used for registration, drop and
// failure events. A nil logger is ignored.
func WithDispatchLogger(l *slog.Logger) DispatchOption {
	return func(c *dispatchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

type addConfig struct {
	name string
}

// AddOption configures a single registration.
type AddOption func(*addConfig)

// WithName labels a registration. The name shows up in logs and in the
// [TaskInfo] of errors it produces. Without it the channel kind and mode
// are used.
func WithName(name string) AddOption {
	return func(c *addConfig) {
		c.name = name
	}
}

type poolConfig struct {
	backoff   poll.Backoff
	logger    *slog.Logger
	onError   func(error)
	maxErrors int
}

// PoolOption configures a [ThreadPool].
type PoolOption func(*poolConfig)

func defaultPoolConfig() poolConfig {
	return poolConfig{
		backoff: poll.DefaultBackoff,
		logger:  discardLogger,
	}
}

// WithPoolBackoff sets the idle sleep bounds of pool workers.
//
// Panics if min <= 0 or max < min.
func WithPoolBackoff(min, max time.Duration) PoolOption {
	b := poll.NewBackoff(min, max)
	return func(c *poolConfig) {
		c.backoff = b
	}
}

// WithPoolLogger sets the logger used for task failures. A nil logger is
// ignored.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorHandler registers a hook called with every task failure,
// including recovered panics as [*PanicError]. It runs on the worker
// goroutine that executed the task.
func WithErrorHandler(fn func(error)) PoolOption {
	return func(c *poolConfig) {
		c.onError = fn
	}
}

// WithMaxErrors caps how many task errors the pool keeps for [ThreadPool.Err]
// and [ThreadPool.Close]. Errors beyond the cap are still counted and
// passed to the error handler. Zero means unlimited.
//
// Panics if n is negative.
func WithMaxErrors(n int) PoolOption {
	if n < 0 {
		panic("chanloop: WithMaxErrors requires n >= 0")
	}
	return func(c *poolConfig) {
		c.maxErrors = n
	}
}
