// Package courier provides a typed, in-process message bus for Go.
//
// Courier routes strongly-typed messages between producer and consumer
// goroutines that never hold references to each other. It is designed for
// programs structured as independent worker units — a pool of checkers and a
// printer, a poller and a recorder — that communicate only through queues.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Bus
//  2. Topic
//  3. Handler
//  4. Future
//  5. Runner
//
// # Bus
//
// A Bus owns one FIFO queue per registered message type plus a single lock
// and condition variable shared by all of them. The set of types a bus
// carries is fixed up front: types are admitted with Register, which returns
// the only handle able to send or receive that type, so an unregistered type
// cannot be used at all.
//
// Close disposes the bus: loggers are cleared, queues drained, every blocked
// sender and receiver is released, and every handler goroutine is joined.
// Close is idempotent. One quirk is preserved deliberately: a Send that lands
// after Close still succeeds. The entry is queued but no handler will ever
// run for it. Rejecting or blocking such sends would deadlock producers
// during teardown, so they are accepted and simply go undelivered.
//
// # Topic
//
// A Topic[T] is the typed endpoint for one message type. Send appends to the
// type's queue, optionally blocking while a caller-supplied capacity bound is
// exceeded (backpressure); SendDelayed schedules a send for later without
// blocking or leaking a timer per call. Receive blocks for the next matching
// entry, Poll returns immediately. Entries may carry a target id restricting
// who consumes them; filtering never reorders entries relative to each other.
//
// # Handler
//
// AddHandler starts a dedicated goroutine that delivers messages to a
// callback set. Failures — returned errors and recovered panics alike — are
// reported to OnError and never kill the worker. A handler with an OnIdle
// callback polls instead of blocking and runs OnIdle whenever its queue is
// empty, which is how a handler doubles as a producer. Handlers stop when
// the bus closes or when ClearHandlers removes them; both join the
// goroutines before returning.
//
// # Future
//
// The future subpackage layers a single-shot asynchronous result on top of a
// private two-type bus, so it inherits the bus's correctness guarantees
// instead of introducing new synchronization.
//
// # Runner
//
// Runner is a thin convenience that spins one named background worker
// driven entirely by an idle callback until closed.
//
// For a complete example, see examples/prime.
package courier
