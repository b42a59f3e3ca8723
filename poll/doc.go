// Package poll provides the wait-with-timeout contract shared by every
// channel in this module, together with an exponential backoff used by
// polling loops.
//
// A [Waiter] exposes a single blocking primitive, WaitFor. A zero or
// negative duration asks for a single non-blocking check. The helpers
// [Poll], [Wait], [WaitUntil] and [WaitContext] are built on top of it.
//
// [Backoff] retries a predicate, sleeping between attempts with an
// interval that doubles from [Backoff.Min] up to [Backoff.Max]. [Sleeper]
// carries the same growth policy for loops that manage their own
// predicate, such as scheduler passes and idle workers.
package poll
