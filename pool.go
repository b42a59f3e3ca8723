package chanloop

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
)

// ThreadPool runs submitted tasks on a fixed set of worker goroutines.
//
// Each worker owns a queue. [ThreadPool.Insert] spreads tasks across the
// queues round-robin. A worker takes the newest task from its own queue
// and, when that is empty, steals the oldest task from the other queues,
// starting with its neighbour. A worker with nothing to do sleeps with
// exponential backoff.
//
// Wait, Clear and Close block until running tasks finish, so a task must
// not call them on its own pool.
//
// Task failures never stop the pool. Errors and recovered panics are
// counted, passed to the [WithErrorHandler] hook, and returned by
// [ThreadPool.Err] and [ThreadPool.Close].
type ThreadPool struct {
	cfg     poolConfig
	workers []*worker
	wg      sync.WaitGroup

	index  atomic.Uint64 // round-robin insertion cursor
	queued atomic.Int64  // inserted but not finished
	hold   atomic.Int64  // >0 while Clear runs
	stop   atomic.Bool
	closed atomic.Bool

	errMu   sync.Mutex
	errs    []error
	dropped int

	submitted atomic.Int64
	completed atomic.Int64
	errored   atomic.Int64
	stolen    atomic.Int64
	inFlight  atomic.Int64
}

type worker struct {
	mu    sync.Mutex
	queue deque.Deque[func() error]
}

// PoolStats provides a point-in-time snapshot of pool activity.
type PoolStats struct {
	Submitted int64 // tasks accepted by Insert
	Completed int64 // tasks finished (success + error)
	Errored   int64 // tasks that returned an error or panicked
	Stolen    int64 // tasks taken from another worker's queue
	InFlight  int64 // tasks currently executing
	Pending   int64 // tasks inserted but not finished
	Workers   int   // worker count (fixed at creation)
}

// NewThreadPool starts a pool with n workers. n == 0 uses
// runtime.GOMAXPROCS(0).
//
// Panics if n < 0.
func NewThreadPool(n int, opts ...PoolOption) *ThreadPool {
	if n < 0 {
		panic("chanloop: NewThreadPool requires n >= 0")
	}
	if n == 0 {
		n = max(runtime.GOMAXPROCS(0), 1)
	}

	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &ThreadPool{
		cfg:     cfg,
		workers: make([]*worker, n),
	}
	for i := range p.workers {
		p.workers[i] = &worker{}
	}

	p.wg.Add(n)
	for i := range n {
		go p.run(i)
	}
	return p
}

// run is the loop of worker i.
func (p *ThreadPool) run(i int) {
	defer p.wg.Done()

	sleeper := p.cfg.backoff.Sleeper()
	for !p.stop.Load() {
		fn := p.take(i)
		if p.stop.Load() {
			if fn != nil {
				p.queued.Add(-1)
			}
			return
		}
		if fn == nil {
			sleeper.Sleep()
			continue
		}
		p.exec(fn)
		sleeper.Reset()
	}
}

// take pops from the back of worker i's own queue, then steals from the
// front of the others in round-robin order.
func (p *ThreadPool) take(i int) func() error {
	own := p.workers[i]
	own.mu.Lock()
	if own.queue.Len() > 0 {
		fn := own.queue.PopBack()
		own.mu.Unlock()
		return fn
	}
	own.mu.Unlock()

	n := len(p.workers)
	for j := 1; j < n && !p.stop.Load(); j++ {
		victim := p.workers[(i+j)%n]
		victim.mu.Lock()
		if victim.queue.Len() > 0 {
			fn := victim.queue.PopFront()
			victim.mu.Unlock()
			p.stolen.Add(1)
			return fn
		}
		victim.mu.Unlock()
	}
	return nil
}

func (p *ThreadPool) exec(fn func() error) {
	p.inFlight.Add(1)
	err := safeCall(fn)
	p.inFlight.Add(-1)
	p.completed.Add(1)

	if err != nil {
		p.record(err)
	}
	// Decrement last so Wait observes the error above.
	p.queued.Add(-1)
}

func (p *ThreadPool) record(err error) {
	p.errored.Add(1)
	p.cfg.logger.Warn("pool: task failed", slog.Any("error", err))

	p.errMu.Lock()
	if p.cfg.maxErrors > 0 && len(p.errs) >= p.cfg.maxErrors {
		p.dropped++
	} else {
		p.errs = append(p.errs, err)
	}
	p.errMu.Unlock()

	if p.cfg.onError != nil {
		p.cfg.onError(err)
	}
}

// Insert queues fn. It returns [ErrPoolHeld] while [ThreadPool.Clear] is
// running and [ErrPoolClosed] after [ThreadPool.Close].
func (p *ThreadPool) Insert(fn func() error) error {
	if fn == nil {
		panic("chanloop: Insert requires non-nil fn")
	}
	// Count the task before checking state so Close and Clear, which set
	// their flag and then wait for the count to reach zero, cannot miss it.
	p.queued.Add(1)
	if p.closed.Load() {
		p.queued.Add(-1)
		return ErrPoolClosed
	}
	if p.hold.Load() > 0 {
		p.queued.Add(-1)
		return ErrPoolHeld
	}

	i := (p.index.Add(1) - 1) % uint64(len(p.workers))
	w := p.workers[i]
	w.mu.Lock()
	w.queue.PushBack(fn)
	w.mu.Unlock()
	p.submitted.Add(1)
	return nil
}

// Go queues fn, a task that cannot fail. See [ThreadPool.Insert].
func (p *ThreadPool) Go(fn func()) error {
	if fn == nil {
		panic("chanloop: Go requires non-nil fn")
	}
	return p.Insert(func() error {
		fn()
		return nil
	})
}

// Size returns the number of workers.
func (p *ThreadPool) Size() int {
	return len(p.workers)
}

// Pending returns the number of tasks inserted but not yet finished,
// including tasks currently running.
func (p *ThreadPool) Pending() int {
	return int(p.queued.Load())
}

// Clear discards every queued task, waits for running tasks to finish,
// then accepts inserts again. Inserts made meanwhile fail with
// [ErrPoolHeld].
func (p *ThreadPool) Clear() {
	p.hold.Add(1)
	defer p.hold.Add(-1)

	for _, w := range p.workers {
		w.mu.Lock()
		n := w.queue.Len()
		w.queue.Clear()
		p.queued.Add(-int64(n))
		w.mu.Unlock()
	}
	p.Wait()
}

func (p *ThreadPool) idle() bool {
	return p.queued.Load() == 0
}

// Wait blocks until every inserted task has finished.
func (p *ThreadPool) Wait() {
	p.cfg.backoff.Wait(p.idle)
}

// WaitFor blocks until every inserted task has finished or timeout
// elapses, and reports whether the pool became idle.
func (p *ThreadPool) WaitFor(timeout time.Duration) bool {
	return p.cfg.backoff.WaitFor(p.idle, timeout)
}

// WaitUntil is WaitFor with an absolute deadline.
func (p *ThreadPool) WaitUntil(deadline time.Time) bool {
	return p.cfg.backoff.WaitUntil(p.idle, deadline)
}

// WaitContext blocks until every inserted task has finished or ctx is done.
func (p *ThreadPool) WaitContext(ctx context.Context) error {
	return p.cfg.backoff.WaitContext(ctx, p.idle)
}

// Err returns the joined errors of every failed task so far, or nil.
func (p *ThreadPool) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}

// DroppedErrors returns the number of errors not kept because of
// [WithMaxErrors].
func (p *ThreadPool) DroppedErrors() int {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.dropped
}

// Close stops accepting tasks, waits for queued and running tasks to
// finish, stops the workers and returns the joined task errors. Call
// [ThreadPool.Clear] first to discard queued work instead of running it.
//
// Safe to call multiple times; subsequent calls return the same result.
func (p *ThreadPool) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.Wait()
		p.stop.Store(true)
	}
	p.wg.Wait()
	return p.Err()
}

// Stats returns a point-in-time snapshot of pool activity.
func (p *ThreadPool) Stats() PoolStats {
	return PoolStats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Errored:   p.errored.Load(),
		Stolen:    p.stolen.Load(),
		InFlight:  p.inFlight.Load(),
		Pending:   p.queued.Load(),
		Workers:   len(p.workers),
	}
}
