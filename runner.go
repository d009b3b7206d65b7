package courier

// fillerMessage is the message type behind Runner's private bus. Nothing is
// ever sent on it; its handler exists purely for the idle callback.
type fillerMessage struct{}

// Runner drives a single named background worker that calls onIdle over and
// over until Close. It is a convenience wrapper over a private one-topic
// bus, so the worker has the same failure isolation and shutdown behavior
// as any handler.
//
// onIdle runs in a tight loop; callbacks that have nothing to do should
// sleep or block on their own pacing mechanism.
type Runner struct {
	bus *Bus
}

// NewRunner starts the worker. onError may be nil, in which case failures
// from onIdle are dropped.
func NewRunner(name string, onIdle func() error, onError func(error), opts ...Option) *Runner {
	bus := New(opts...)
	Register[fillerMessage](bus).AddHandler(Handler[fillerMessage]{
		Name:    name,
		OnError: onError,
		OnIdle:  onIdle,
	})
	return &Runner{bus: bus}
}

// Close stops the worker and waits for it to exit. Idempotent.
func (r *Runner) Close() {
	r.bus.Close()
}
