package courier

import (
	"reflect"
	"time"
)

type entry[T any] struct {
	msg    *T
	target uint64
}

// Logger observes every successful send and receive on one topic. sent is
// true when the callback fires on the sending side. Loggers run outside the
// bus lock, after the queue mutation, and are advisory: they exist for audit
// and debugging, not correctness.
type Logger[T any] func(msg *T, sent bool)

// Topic is the typed endpoint for one message type on a Bus. All Topic
// values for a given type on a given bus are the same object; Register is
// the only way to obtain one.
type Topic[T any] struct {
	bus  *Bus
	name string

	// Guarded by bus.mu.
	queue   []entry[T]
	logger  Logger[T]
	workers []*worker
}

// Register admits message type T to the bus and returns its topic.
// Registering the same type again returns the same topic. The registered
// set is meant to be fixed before traffic starts; there is no way to
// unregister.
func Register[T any](b *Bus) *Topic[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.byType[key]; ok {
		return existing.(*Topic[T])
	}
	t := &Topic[T]{bus: b, name: key.String()}
	b.byType[key] = t
	b.order = append(b.order, t)
	return t
}

// Name returns the message type name this topic carries, as used in logs
// and journal records.
func (t *Topic[T]) Name() string { return t.name }

// Send appends msg to the topic's queue and wakes waiters. With WithLimit
// it blocks while the queue is at capacity and the bus is running; a bus
// that closes mid-wait releases the sender rather than leaving it blocked
// forever. Sends issued after Close still succeed — the entry is queued but
// no handler will deliver it (see the package documentation).
//
// Ownership of msg passes to the bus and then to exactly one receiver; the
// payload is never copied or delivered twice.
func (t *Topic[T]) Send(msg *T, opts ...MsgOption) {
	o := applyMsgOptions(opts)
	b := t.bus
	b.mu.Lock()
	for b.running && o.limit > 0 && len(t.queue) >= o.limit {
		b.cond.Wait()
	}
	t.queue = append(t.queue, entry[T]{msg: msg, target: o.target})
	lg := t.logger
	b.mu.Unlock()
	b.cond.Broadcast()
	if lg != nil {
		lg(msg, true)
	}
}

// SendDelayed schedules Send(msg, opts...) to run once delay has elapsed.
// It never blocks the caller. Pending delays are abandoned if the bus is
// closed before they fire; a delay that fires first performs a normal send.
func (t *Topic[T]) SendDelayed(msg *T, delay time.Duration, opts ...MsgOption) {
	t.bus.pool.Schedule(delay, func() {
		t.Send(msg, opts...)
	})
}

// Receive removes and returns the oldest matching entry, blocking until one
// exists or the bus is closed. On close it reports ok == false.
func (t *Topic[T]) Receive(opts ...MsgOption) (msg *T, ok bool) {
	return t.receive(true, applyMsgOptions(opts).target, nil)
}

// Poll is the non-blocking form of Receive: it returns the oldest matching
// entry if one is queued right now, and ok == false otherwise.
func (t *Topic[T]) Poll(opts ...MsgOption) (msg *T, ok bool) {
	return t.receive(false, applyMsgOptions(opts).target, nil)
}

// receive is the single consumption path shared by Receive, Poll and the
// handler loop. A non-nil worker adds its stop flag to the wait predicate so
// ClearHandlers can release a blocked handler without closing the bus, and
// suppresses the pop once stopped so no message is consumed undispatched.
func (t *Topic[T]) receive(wait bool, target uint64, w *worker) (*T, bool) {
	b := t.bus
	b.mu.Lock()
	for wait && b.running && !w.stopRequested() && t.match(target) < 0 {
		b.cond.Wait()
	}
	var msg *T
	ok := false
	if i := t.match(target); i >= 0 && !w.stopRequested() {
		msg = t.queue[i].msg
		t.queue = append(t.queue[:i], t.queue[i+1:]...)
		ok = true
	}
	lg := t.logger
	b.mu.Unlock()
	if ok {
		b.cond.Broadcast()
		if lg != nil {
			lg(msg, false)
		}
	}
	return msg, ok
}

// match returns the index of the first entry visible to the given receive
// target, or -1. An entry is visible when either side is the wildcard or the
// ids are equal; the scan order keeps FIFO among matching entries.
func (t *Topic[T]) match(target uint64) int {
	for i, e := range t.queue {
		if target == Wildcard || e.target == Wildcard || e.target == target {
			return i
		}
	}
	return -1
}

// Len returns the number of queued entries for this topic. Advisory, like
// Bus.TotalLen.
func (t *Topic[T]) Len() int {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return len(t.queue)
}

// SetLogger replaces the topic's observer. A nil logger removes it. The
// logger slot shares the bus lock with the queues; no extra synchronization
// is needed in callers.
func (t *Topic[T]) SetLogger(l Logger[T]) {
	t.bus.mu.Lock()
	t.logger = l
	t.bus.mu.Unlock()
}

func (t *Topic[T]) queueLen() int { return len(t.queue) }
func (t *Topic[T]) drain()        { t.queue = nil }
func (t *Topic[T]) dropLogger()   { t.logger = nil }
