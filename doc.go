// Package chanloop runs user callbacks against waitable channels and
// schedules arbitrary work on a work-stealing pool.
//
// # Dispatch
//
// [Dispatch] is an event loop over channels from the
// [github.com/baxromumarov/chanloop/chanx] package. Register a channel with
// one callback via [Dispatch.AddEvent], [AddMessage] or [Dispatch.AddStream],
// choosing a [Mode]:
//
//   - [Sync]: the goroutine calling [Dispatch.Run] polls the channel once per
//     pass and runs the callback when it is ready. Passes follow
//     registration order. A pass that runs nothing is followed by an
//     exponential backoff sleep.
//   - [Async]: a dedicated goroutine blocks on the channel and runs the
//     callback. The channel must report IsAsync.
//
// Run returns a [Result] whose [Reason] says why it stopped: a channel
// closed, a poll or callback failed, nothing is registered, or the
// context ended. The caller decides whether to Run again or [Dispatch.Stop].
//
//	d := chanloop.NewDispatch()
//	q := chanx.NewQueueChannel[string]()
//	_ = chanloop.AddMessage(d, q, chanloop.Sync, func(s string) error {
//	    fmt.Println(s)
//	    return nil
//	})
//	q.Write("hello")
//	go func() { time.Sleep(time.Second); q.Close() }()
//	res := d.Run(ctx) // res.Reason == chanloop.ReasonClosed
//
// Registration misuse returns errors wrapping [ErrInvalidArgument]. Runtime
// failures, including panics converted to [*PanicError], come back from
// Run wrapped in [*TaskError].
//
// # ThreadPool
//
// [ThreadPool] runs tasks on a fixed number of workers. Each worker owns a
// queue, takes its newest task first and steals the oldest tasks of its
// neighbours when idle. [ThreadPool.Wait], [ThreadPool.WaitFor],
// [ThreadPool.WaitUntil] and [ThreadPool.WaitContext] block until the pool
// is idle; [ThreadPool.Clear] discards queued work.
//
// Unlike many pools, task failures are not silently dropped. They are
// collected and returned by [ThreadPool.Err] and [ThreadPool.Close], and
// passed to the [WithErrorHandler] hook as they happen.
package chanloop
