// Package sched implements the slot pool behind delayed sends: a growable
// set of pending timer tasks whose completed slots are reclaimed
// opportunistically, so sustained delayed traffic does not accumulate one
// goroutine or slot per call.
package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pool schedules functions to run after a delay. Safe for concurrent use.
// The pool has its own lock, independent of any caller lock, so scheduling
// never serializes against unrelated work.
type Pool struct {
	mu      sync.Mutex
	slots   []*slot
	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

type slot struct {
	done atomic.Bool
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{stop: make(chan struct{})}
}

// Schedule arranges for fn to run once delay has elapsed. It costs one scan
// of the slot pool and never blocks on the delay itself. The scan reuses the
// first completed slot it finds and drops the trailing run of completed
// slots; only when every slot is live does the pool grow by one. After Stop,
// Schedule is a no-op.
func (p *Pool) Schedule(delay time.Duration, fn func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	s := &slot{}
	reused := false
	for i, old := range p.slots {
		if old.done.Load() {
			p.slots[i] = s
			reused = true
			break
		}
	}
	n := len(p.slots)
	for n > 0 && p.slots[n-1].done.Load() {
		n--
	}
	p.slots = p.slots[:n]
	if !reused {
		p.slots = append(p.slots, s)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer s.done.Store(true)
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-p.stop:
		}
	}()
}

// Stop abandons every delay that has not fired yet and waits for all
// outstanding tasks to return. Idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()
	p.wg.Wait()
}

// Len returns the current slot count, including completed slots not yet
// reclaimed.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Pending returns the number of slots whose task has not yet finished.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.slots {
		if !s.done.Load() {
			n++
		}
	}
	return n
}
