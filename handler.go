package courier

import (
	"context"
	"fmt"
	"runtime/pprof"
)

// Handler is a callback set bound to one message type. Every registration
// gets its own worker goroutine; several handlers may be registered for the
// same topic and then compete for its queue.
type Handler[T any] struct {
	// Name labels the worker goroutine via pprof labels so profilers can
	// attribute its samples. Defaults to the message type name.
	Name string

	// OnMessage is invoked for each message delivered to this handler.
	OnMessage func(msg *T) error

	// OnError receives every failure from OnMessage and OnIdle, including
	// recovered panics normalized to errors. When nil, failures are
	// silently dropped. Failures never stop the worker.
	OnError func(err error)

	// OnIdle, when set, switches the worker from blocking to polling: it
	// runs each time the queue holds no message for us. This is how a
	// handler acts as a producer or periodic poller; the callback should
	// throttle itself, typically with a bounded Send.
	OnIdle func() error

	// OnExit runs once on the worker goroutine after its loop stops.
	OnExit func()
}

// worker is the per-registration goroutine handle.
type worker struct {
	stopped bool          // guarded by bus.mu
	done    chan struct{} // closed when the goroutine returns
}

func (w *worker) stopRequested() bool {
	return w != nil && w.stopped
}

// AddHandler registers h and starts its worker goroutine. The worker runs
// until the bus is closed or ClearHandlers is called on this topic.
func (t *Topic[T]) AddHandler(h Handler[T]) {
	name := h.Name
	if name == "" {
		name = t.name
	}
	w := &worker{done: make(chan struct{})}
	b := t.bus
	b.mu.Lock()
	t.workers = append(t.workers, w)
	b.mu.Unlock()

	go func() {
		defer close(w.done)
		pprof.Do(context.Background(), pprof.Labels("courier_handler", name), func(context.Context) {
			t.runWorker(w, h, name)
		})
	}()
}

func (t *Topic[T]) runWorker(w *worker, h Handler[T], name string) {
	b := t.bus
	b.log.Debug("handler started", "handler", name)
	for {
		msg, ok := t.receive(h.OnIdle == nil, Wildcard, w)

		b.mu.Lock()
		running, stopped := b.running, w.stopped
		b.mu.Unlock()
		if !running {
			// Disposal: stop without dispatching. Queues were drained.
			break
		}

		var err error
		switch {
		case ok && h.OnMessage != nil:
			// A popped message is dispatched even when this handler was
			// cleared in the meantime, so removal never loses an entry.
			err = dispatch(func() error { return h.OnMessage(msg) })
		case !ok && !stopped && h.OnIdle != nil:
			err = dispatch(h.OnIdle)
		}
		if err != nil && h.OnError != nil {
			h.OnError(err)
		}
		if stopped {
			break
		}
	}
	if h.OnExit != nil {
		h.OnExit()
	}
	b.log.Debug("handler stopped", "handler", name)
}

// dispatch runs one callback and converts a panic into the error shape
// OnError expects: a panicking error value passes through, anything else is
// wrapped around ErrUnknownFailure.
func dispatch(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%w: %v", ErrUnknownFailure, r)
		}
	}()
	return fn()
}

// ClearHandlers stops every handler registered on this topic and joins
// their goroutines before returning. The bus keeps running; messages sent
// afterwards stay queued until polled or a new handler is added. Each
// stopped handler's OnExit runs on its own goroutine before the join
// completes.
func (t *Topic[T]) ClearHandlers() {
	b := t.bus
	b.mu.Lock()
	ws := t.workers
	t.workers = nil
	for _, w := range ws {
		w.stopped = true
	}
	b.mu.Unlock()
	b.cond.Broadcast()
	for _, w := range ws {
		<-w.done
	}
}

func (t *Topic[T]) stopWorkers() { t.ClearHandlers() }
