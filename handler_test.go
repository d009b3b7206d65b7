package courier

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompetingHandlersDeliverExactlyOnce(t *testing.T) {
	t.Parallel()

	const n = 300

	bus := New()
	defer bus.Close()
	notes := Register[note](bus)

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
	)
	record := func(msg *note) error {
		mu.Lock()
		seen[msg.N]++
		mu.Unlock()
		return nil
	}
	for i := 0; i < 3; i++ {
		notes.AddHandler(Handler[note]{OnMessage: record})
	}

	for i := 0; i < n; i++ {
		notes.Send(&note{N: i})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, 5*time.Second, 5*time.Millisecond, "all messages must be delivered")

	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < n; i++ {
		require.Equal(t, 1, seen[i], "message %d must be delivered exactly once", i)
	}
}

func TestIdleHandlerProducesUnderBackpressure(t *testing.T) {
	t.Parallel()

	type request struct{ Seq int }
	type result struct{ Seq int }

	bus := New()
	defer bus.Close()
	requests := Register[request](bus)
	results := Register[result](bus)

	requests.AddHandler(Handler[request]{
		OnMessage: func(m *request) error {
			results.Send(&result{Seq: m.Seq})
			return nil
		},
	})

	var (
		mu        sync.Mutex
		delivered int
	)
	seq := 0
	results.AddHandler(Handler[result]{
		OnMessage: func(*result) error {
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		},
		OnIdle: func() error {
			requests.Send(&request{Seq: seq}, WithLimit(5))
			seq++
			return nil
		},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered >= 50
	}, 5*time.Second, 5*time.Millisecond, "idle producer must keep the pipeline moving")
}

func TestHandlerFailuresReachOnErrorAndNeverKillTheWorker(t *testing.T) {
	t.Parallel()

	type job struct{ Mode string }

	errBoom := errors.New("boom")

	bus := New()
	defer bus.Close()
	jobs := Register[job](bus)

	errs := make(chan error, 8)
	processed := make(chan string, 8)
	jobs.AddHandler(Handler[job]{
		OnMessage: func(m *job) error {
			switch m.Mode {
			case "error":
				return errBoom
			case "panic-error":
				panic(errBoom)
			case "panic-value":
				panic("not an error")
			default:
				processed <- m.Mode
				return nil
			}
		},
		OnError: func(err error) { errs <- err },
	})

	jobs.Send(&job{Mode: "error"})
	jobs.Send(&job{Mode: "panic-error"})
	jobs.Send(&job{Mode: "panic-value"})
	jobs.Send(&job{Mode: "ok"})

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, errBoom)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for error callback")
		}
	}

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrUnknownFailure, "non-error panics are normalized")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for normalized panic")
	}

	select {
	case mode := <-processed:
		require.Equal(t, "ok", mode, "worker must survive all failures")
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not process the message after failures")
	}
}

func TestFailuresAreDroppedWithoutOnError(t *testing.T) {
	t.Parallel()

	bus := New()
	defer bus.Close()
	notes := Register[note](bus)

	processed := make(chan int, 2)
	notes.AddHandler(Handler[note]{
		OnMessage: func(m *note) error {
			if m.N < 0 {
				panic("dropped silently")
			}
			processed <- m.N
			return nil
		},
	})

	notes.Send(&note{N: -1})
	notes.Send(&note{N: 1})

	select {
	case n := <-processed:
		require.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not continue after a swallowed failure")
	}
}

func TestOnExitRunsOnClose(t *testing.T) {
	t.Parallel()

	bus := New()
	notes := Register[note](bus)

	exited := make(chan struct{})
	notes.AddHandler(Handler[note]{
		OnMessage: func(*note) error { return nil },
		OnExit:    func() { close(exited) },
	})

	bus.Close()

	select {
	case <-exited:
	default:
		t.Fatal("OnExit must have run before Close returns")
	}
}

func TestClearHandlersJoinsWithoutClosingTheBus(t *testing.T) {
	t.Parallel()

	bus := New()
	defer bus.Close()
	notes := Register[note](bus)

	exited := make(chan struct{})
	notes.AddHandler(Handler[note]{
		OnMessage: func(*note) error { return nil },
		OnExit:    func() { close(exited) },
	})

	notes.ClearHandlers()

	select {
	case <-exited:
	default:
		t.Fatal("ClearHandlers must join the worker before returning")
	}

	// The bus keeps running; traffic just queues up until polled.
	notes.Send(&note{N: 3})
	msg, ok := notes.Poll()
	require.True(t, ok)
	require.Equal(t, 3, msg.N)
}

func TestClearHandlersDoesNotConsumeQueuedMessages(t *testing.T) {
	t.Parallel()

	bus := New()
	defer bus.Close()
	notes := Register[note](bus)

	// A handler being stopped must not swallow an entry it will never
	// dispatch. Stop a blocked handler right as a message arrives, many
	// times over, and verify nothing is lost.
	for i := 0; i < 50; i++ {
		notes.AddHandler(Handler[note]{
			OnMessage: func(*note) error {
				time.Sleep(time.Millisecond)
				return nil
			},
		})
		notes.Send(&note{N: i})
		notes.ClearHandlers()

		// Whatever the worker did not dispatch is still pollable.
		notes.Poll()
		require.Equal(t, 0, notes.Len())
	}
}
