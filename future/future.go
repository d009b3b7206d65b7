// Package future provides a single-shot asynchronous result built on a
// private courier bus. Rather than introducing bespoke synchronization for
// the async rendezvous, a Future wires two private message types — a start
// signal and an outcome — through a bus of its own and inherits the bus's
// correctness guarantees.
package future

import (
	"sync"

	"github.com/mlammi/courier"
)

type startSignal struct{}

type outcome[T any] struct {
	value T
}

// Future holds at most one pending operation and resolves at most once:
// whichever of the bound operation and a direct Set stores a value first
// wins, and the loser is silently discarded. A resolved future is terminal.
type Future[T any] struct {
	bus     *courier.Bus
	start   *courier.Topic[startSignal]
	results *courier.Topic[outcome[T]]

	mu     sync.Mutex
	cond   *sync.Cond
	bound  bool
	done   bool
	closed bool
	value  T
}

// New creates an unresolved future with no operation bound. Reading it
// before Bind or Set yields the zero value without blocking.
func New[T any]() *Future[T] {
	f := &Future[T]{}
	f.cond = sync.NewCond(&f.mu)
	f.bus = courier.New()
	f.start = courier.Register[startSignal](f.bus)
	f.results = courier.Register[outcome[T]](f.bus)
	f.results.AddHandler(courier.Handler[outcome[T]]{
		Name: "future-result",
		OnMessage: func(m *outcome[T]) error {
			f.resolve(m.value)
			return nil
		},
	})
	return f
}

// Go creates a future already bound to fn.
func Go[T any](fn func() T) *Future[T] {
	f := New[T]()
	f.Bind(fn)
	return f
}

// Bind installs fn as the future's operation and triggers it on a worker
// goroutine. A future holds one pending operation at a time: Bind first
// removes the previous one, waiting for its worker if it is mid-flight.
// A previously produced result still wins; see Set.
func (f *Future[T]) Bind(fn func() T) {
	f.start.ClearHandlers()
	f.start.AddHandler(courier.Handler[startSignal]{
		Name: "future-op",
		OnMessage: func(*startSignal) error {
			v := fn()
			f.results.Send(&outcome[T]{value: v})
			return nil
		},
	})
	f.mu.Lock()
	f.bound = true
	f.mu.Unlock()
	f.start.Send(&startSignal{})
}

// Set resolves the future directly, bypassing any bound operation. Racing
// Set against an in-flight operation is allowed: the first value stored
// wins and the other is discarded. Once resolved, Set is a no-op.
func (f *Future[T]) Set(v T) {
	f.resolve(v)
}

func (f *Future[T]) resolve(v T) {
	f.mu.Lock()
	if !f.done {
		f.done = true
		f.value = v
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

// Value blocks until the future resolves and returns the stored value. A
// future that was never bound, or that is closed before its operation
// finishes, yields the zero value.
func (f *Future[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.bound && !f.done && !f.closed {
		f.cond.Wait()
	}
	return f.value
}

// Peek returns the stored value without blocking; ok reports whether the
// future has resolved.
func (f *Future[T]) Peek() (value T, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.done
}

// Ready reports whether a result is stored.
func (f *Future[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Close disposes the private bus, joining the future's workers, and
// releases any Value call still blocked on an operation that will never
// finish. A bound operation currently executing is waited for.
func (f *Future[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
	f.bus.Close()
}
