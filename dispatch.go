package chanloop

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/baxromumarov/chanloop/chanx"
)

// Reason explains why [Dispatch.Run] returned.
type Reason int

const (
	// ReasonEmpty means nothing was registered.
	ReasonEmpty Reason = iota

	// ReasonClosed means a sync channel closed, or an async worker
	// finished without error. The registration has been dropped.
	ReasonClosed

	// ReasonError means a poll or callback failed. The registration is
	// kept until the caller drops it.
	ReasonError

	// ReasonCanceled means the context passed to Run was done.
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty"
	case ReasonClosed:
		return "closed"
	case ReasonError:
		return "error"
	case ReasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result is returned by [Dispatch.Run].
type Result struct {
	// Channel is the channel that ended the run, nil for ReasonEmpty and
	// ReasonCanceled.
	Channel chanx.Channel

	// Task describes the registration of Channel.
	Task TaskInfo

	// Err is a [*TaskError] for ReasonError and the context error for
	// ReasonCanceled.
	Err error

	Reason Reason
}

// DispatchStats is a point-in-time snapshot of a dispatcher.
type DispatchStats struct {
	Registered int   // current registrations
	Passes     int64 // sync scheduling passes run
	Callbacks  int64 // callbacks invoked, sync and async
	Sleeps     int64 // idle backoff sleeps
	Errors     int64 // failures captured from polls and callbacks
}

// task is one registration.
type task struct {
	info TaskInfo
	ch   chanx.Channel
	call func() error

	// Async only. quit is closed by stop; exited is closed when the
	// worker goroutine returns. err is written before done is set.
	quit   chan struct{}
	exited chan struct{}
	done   atomic.Bool
	err    error

	dropped  atomic.Bool
	stopOnce sync.Once
}

// signal marks the task dropped and tells its worker, if any, to exit
// without waiting for it.
func (t *task) signal() {
	t.stopOnce.Do(func() {
		t.dropped.Store(true)
		if t.quit != nil {
			close(t.quit)
		}
	})
}

// stop signals the task and joins its worker, if any.
func (t *task) stop() {
	t.signal()
	if t.exited != nil {
		<-t.exited
	}
}

func (t *task) quitting() bool {
	select {
	case <-t.quit:
		return true
	default:
		return false
	}
}

// Dispatch runs callbacks for a set of registered channels.
//
// Sync registrations are polled cooperatively by whoever calls [Dispatch.Run].
// Async registrations each get a goroutine that blocks on the channel and
// runs the callback; Run only observes when those goroutines finish.
//
// A Dispatch is safe for concurrent use, but Run is meant to be driven by
// one goroutine at a time. Callbacks may register channels, including
// re-registering their own, and may drop any channel except, for an async
// callback, its own.
type Dispatch struct {
	cfg dispatchConfig

	mu    sync.Mutex
	tasks []*task // registration order
	index map[chanx.Channel]*task

	workers conc.WaitGroup

	passes    atomic.Int64
	callbacks atomic.Int64
	sleeps    atomic.Int64
	errors    atomic.Int64
}

// NewDispatch returns an empty dispatcher.
func NewDispatch(opts ...DispatchOption) *Dispatch {
	cfg := defaultDispatchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatch{
		cfg:   cfg,
		index: make(map[chanx.Channel]*task),
	}
}

// AddEvent registers fn to run each time c becomes ready.
func (d *Dispatch) AddEvent(c chanx.EventChannel, m Mode, fn func() error, opts ...AddOption) error {
	if c == nil || fn == nil {
		return ErrNilCallback
	}
	return d.add(c, m, fn, opts)
}

// AddStream registers fn to run each time c has bytes. Each call appends
// at most one chunk of c.BufferSize() bytes to a buffer owned by the
// registration and passes it to fn. Bytes fn does not consume stay in the
// buffer for the next call.
func (d *Dispatch) AddStream(c chanx.StreamChannel, m Mode, fn func(buf *bytes.Buffer) error, opts ...AddOption) error {
	if c == nil || fn == nil {
		return ErrNilCallback
	}
	var buf bytes.Buffer
	return d.add(c, m, func() error {
		if chanx.ReadTo(c, &buf) == 0 {
			return nil
		}
		return fn(&buf)
	}, opts)
}

// AddMessage registers fn to run with each value read from c.
func AddMessage[T any](d *Dispatch, c chanx.MessageChannel[T], m Mode, fn func(T) error, opts ...AddOption) error {
	if c == nil || fn == nil {
		return ErrNilCallback
	}
	return d.add(c, m, func() error {
		v, ok := c.Read()
		if !ok {
			return nil
		}
		return fn(v)
	}, opts)
}

// add validates and stores a registration. Re-registering a shared
// channel replaces its previous callback.
func (d *Dispatch) add(c chanx.Channel, m Mode, call func() error, opts []AddOption) error {
	var cfg addConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	d.mu.Lock()
	old := d.index[c]
	switch {
	case old != nil && !c.IsShared():
		d.mu.Unlock()
		return ErrNotShared
	case !m.valid():
		d.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	case m == Async && !c.IsAsync():
		d.mu.Unlock()
		return ErrNotAsync
	}

	t := &task{
		info: TaskInfo{
			ID:   uuid.New(),
			Name: cfg.name,
			Mode: m,
			Kind: c.Kind(),
		},
		ch:   c,
		call: call,
	}
	if t.info.Name == "" {
		t.info.Name = c.Kind().String() + "/" + m.String()
	}

	if old != nil {
		d.tasks[slices.Index(d.tasks, old)] = t
	} else {
		d.tasks = append(d.tasks, t)
	}
	d.index[c] = t
	if m == Async {
		d.startWorker(t)
	}
	d.mu.Unlock()

	// The old worker may be the caller, when an async callback
	// re-registers its own channel, so it is not joined here. Stop joins
	// it through d.workers.
	if old != nil {
		old.signal()
	}

	d.cfg.logger.Debug("dispatch: channel registered",
		slog.String("name", t.info.Name),
		slog.String("id", t.info.ID.String()),
		slog.String("mode", m.String()),
		slog.String("kind", t.info.Kind.String()),
		slog.Bool("replaced", old != nil),
	)
	return nil
}

// startWorker launches the goroutine of an async registration. Caller
// holds d.mu.
func (d *Dispatch) startWorker(t *task) {
	t.quit = make(chan struct{})
	t.exited = make(chan struct{})

	d.workers.Go(func() {
		defer close(t.exited)

		err := safeCall(func() error {
			for !t.quitting() {
				if !t.ch.WaitFor(d.cfg.asyncPoll) {
					continue
				}
				if t.quitting() || t.ch.IsClosed() {
					return nil
				}
				d.callbacks.Add(1)
				if err := t.call(); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.err = d.failure(t, err)
		}
		t.done.Store(true)
	})
}

// failure wraps err for t and records it.
func (d *Dispatch) failure(t *task, err error) error {
	d.errors.Add(1)
	d.cfg.logger.Warn("dispatch: callback failed",
		slog.String("name", t.info.Name),
		slog.String("id", t.info.ID.String()),
		slog.String("mode", t.info.Mode.String()),
		slog.Any("error", err),
	)
	return &TaskError{Task: t.info, Err: err}
}

// poll checks a sync registration once and runs its callback if ready.
func (t *task) poll() (fired, closed bool, err error) {
	err = safeCall(func() error {
		if !t.ch.WaitFor(0) {
			return nil
		}
		if t.ch.IsClosed() {
			closed = true
			return nil
		}
		fired = true
		return t.call()
	})
	return fired, closed, err
}

// Run drives sync registrations until one of them closes or fails, an
// async worker finishes, nothing is registered, or ctx is done.
//
// Each pass polls every sync registration once, in registration order,
// and runs the callback of each ready channel. A pass that runs no
// callback is followed by a sleep that doubles from the backoff minimum
// to its maximum and resets as soon as a callback runs.
//
// A closed channel is dropped before Run returns. A failed registration
// stays registered; call [Dispatch.Drop] to remove it or Run again to
// keep going.
func (d *Dispatch) Run(ctx context.Context) Result {
	sleeper := d.cfg.backoff.Sleeper()

	for {
		snapshot := d.snapshot()
		if len(snapshot) == 0 {
			return Result{Reason: ReasonEmpty}
		}
		if err := ctx.Err(); err != nil {
			return Result{Reason: ReasonCanceled, Err: err}
		}

		d.passes.Add(1)
		calls := 0
		for _, t := range snapshot {
			if t.dropped.Load() {
				continue
			}

			if t.info.Mode == Async {
				if !t.done.Load() {
					continue
				}
				if t.err != nil {
					return Result{Channel: t.ch, Task: t.info, Err: t.err, Reason: ReasonError}
				}
				d.drop(t.ch, t)
				return Result{Channel: t.ch, Task: t.info, Reason: ReasonClosed}
			}

			fired, closed, err := t.poll()
			if fired {
				calls++
				d.callbacks.Add(1)
			}
			if err != nil {
				return Result{Channel: t.ch, Task: t.info, Err: d.failure(t, err), Reason: ReasonError}
			}
			if closed {
				d.drop(t.ch, t)
				return Result{Channel: t.ch, Task: t.info, Reason: ReasonClosed}
			}
		}

		if calls == 0 {
			d.sleeps.Add(1)
			sleeper.Sleep()
		} else {
			sleeper.Reset()
			runtime.Gosched()
		}
	}
}

// Drop removes the registration of c and waits for its async worker to
// exit. The worker notices within one async poll interval. It reports
// whether c was registered.
//
// Drop must not be called from the async callback of c itself.
func (d *Dispatch) Drop(c chanx.Channel) bool {
	return d.drop(c, nil)
}

// drop removes the registration of c. When want is non-nil only that
// exact registration is removed, so a replacement made concurrently by
// another goroutine survives.
func (d *Dispatch) drop(c chanx.Channel, want *task) bool {
	d.mu.Lock()
	t, ok := d.index[c]
	if ok && want != nil && t != want {
		ok = false
	}
	if ok {
		delete(d.index, c)
		d.tasks = slices.DeleteFunc(d.tasks, func(x *task) bool { return x == t })
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	t.stop()
	d.cfg.logger.Debug("dispatch: channel dropped",
		slog.String("name", t.info.Name),
		slog.String("id", t.info.ID.String()),
	)
	return true
}

// Stop closes every registered channel and runs until nothing is
// registered. Registrations that fail while draining are dropped. It
// returns once every async worker has exited, including workers of
// replaced registrations.
func (d *Dispatch) Stop() {
	for _, t := range d.snapshot() {
		t.ch.Close()
	}
	for {
		r := d.Run(context.Background())
		if r.Reason == ReasonEmpty {
			break
		}
		if r.Reason == ReasonError {
			d.Drop(r.Channel)
		}
	}
	d.workers.Wait()
}

// Empty reports whether nothing is registered.
func (d *Dispatch) Empty() bool {
	return d.Len() == 0
}

// Len returns the number of registrations.
func (d *Dispatch) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Tasks returns the registrations in registration order.
func (d *Dispatch) Tasks() []TaskInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TaskInfo, len(d.tasks))
	for i, t := range d.tasks {
		out[i] = t.info
	}
	return out
}

// Stats returns a point-in-time snapshot of dispatcher activity.
func (d *Dispatch) Stats() DispatchStats {
	return DispatchStats{
		Registered: d.Len(),
		Passes:     d.passes.Load(),
		Callbacks:  d.callbacks.Load(),
		Sleeps:     d.sleeps.Load(),
		Errors:     d.errors.Load(),
	}
}

func (d *Dispatch) snapshot() []*task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.tasks)
}
