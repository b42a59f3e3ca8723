package chanloop

import "errors"

// ErrInvalidArgument is the parent of every registration error returned
// by [Dispatch]. Test with errors.Is.
var ErrInvalidArgument = errors.New("chanloop: invalid argument")

var (
	// ErrInvalidMode is returned when the dispatch mode is neither Sync nor Async.
	ErrInvalidMode = newArgError("invalid dispatch mode")

	// ErrNotShared is returned when a channel that does not report
	// IsShared is registered a second time.
	ErrNotShared = newArgError("channel is not shareable")

	// ErrNotAsync is returned when Async mode is requested for a channel
	// that does not report IsAsync.
	ErrNotAsync = newArgError("invalid dispatch mode for channel")

	// ErrNilCallback is returned when the callback or channel is nil.
	ErrNilCallback = newArgError("nil channel or callback")
)

// ErrPoolClosed is returned by [ThreadPool.Insert] after [ThreadPool.Close].
var ErrPoolClosed = errors.New("chanloop: pool is closed")

// ErrPoolHeld is returned by [ThreadPool.Insert] while [ThreadPool.Clear]
// is in progress.
var ErrPoolHeld = errors.New("chanloop: pool is held")

type argError struct {
	msg string
}

func (e *argError) Error() string { return "chanloop: " + e.msg }
func (e *argError) Unwrap() error { return ErrInvalidArgument }

func newArgError(msg string) error {
	return &argError{msg: msg}
}
