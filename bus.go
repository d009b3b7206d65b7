package courier

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/mlammi/courier/internal/sched"
)

// topicState is the type-erased view of a registered Topic that the Bus
// keeps in its registry. Methods are called with the bus lock held, except
// stopWorkers, which joins goroutines and must run unlocked.
type topicState interface {
	queueLen() int
	drain()
	dropLogger()
	stopWorkers()
}

// Bus coordinates all message traffic between its topics. One mutex and one
// condition variable are shared across every registered type: any state
// change wakes all waiters, and each waiter rechecks its own predicate, so a
// wakeup may be spurious with respect to a particular queue but never
// incorrect.
//
// A Bus must be created with New. The zero value is not usable.
type Bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	running bool
	order   []topicState
	byType  map[reflect.Type]any
	pool    *sched.Pool
	log     *slog.Logger
}

// New creates a bus ready to register topics on.
func New(opts ...Option) *Bus {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	b := &Bus{
		running: true,
		byType:  make(map[reflect.Type]any),
		pool:    sched.New(),
		log:     o.logger,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// TotalLen returns the number of queued entries across all topics. The count
// is taken under the lock but is advisory: it can be stale the moment it is
// returned under concurrent use.
func (b *Bus) TotalLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.order {
		n += t.queueLen()
	}
	return n
}

// Close disposes the bus: clears all topic loggers, drains all queues, stops
// accepting blocking work, releases every blocked sender and receiver,
// abandons delayed sends that have not yet fired, and joins every handler
// goroutine. Close is idempotent and safe to call concurrently.
//
// Callers that throttle producers with a queue bound should stop those
// producers before stopping the consumers draining the queue; Close releases
// a producer blocked past that point, but the fate of its in-flight work is
// the caller's responsibility.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	topics := append([]topicState(nil), b.order...)
	for _, t := range topics {
		t.dropLogger()
		t.drain()
	}
	b.running = false
	b.mu.Unlock()
	b.cond.Broadcast()

	b.pool.Stop()
	for _, t := range topics {
		t.stopWorkers()
	}
	b.log.Debug("bus closed")
}
