// Package chanx provides closable, waitable channels with a uniform
// wait-with-timeout contract.
//
// Every [Channel] can be closed, queried for closure, and waited on with
// WaitFor. Once closed a channel stays closed and every pending or future
// WaitFor returns true immediately. Reads never block; blocking is left
// entirely to WaitFor.
//
// Channels come in three capability shapes:
//
//   - [EventChannel]: pure readiness. [TrueChannel], [FalseChannel],
//     [TimerChannel] and [ThrottleChannel].
//   - [MessageChannel]: one typed value per read. [GeneratorChannel],
//     [QueueChannel] and [ValueChannel].
//   - [StreamChannel]: raw bytes. [BufferChannel], with the [ReadTo],
//     [ReadString] and [ReadAll] helpers.
//
// Each concrete channel guards its own state with a private monitor; no
// lock is shared between channels.
//
// [Wait] bridges a channel to a [context.Context], [Feed] pumps a Go
// channel into a [QueueChannel], and [Drain] collects whatever a message
// channel currently holds.
package chanx
