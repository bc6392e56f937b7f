package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *fakeClock) NowUs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(us uint64) {
	c.mu.Lock()
	c.now += us
	c.mu.Unlock()
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestCallbackReturningFalseIsRemoved(t *testing.T) {
	pool, err := NewPool(ExecutionConfig{ProcessorCount: 1})
	require.NoError(t, err)
	defer pool.Delete()

	var runs atomic.Int32
	ec := NewExecutionContext(func(state *ExecutionState) bool {
		runs.Add(1)
		return false
	})
	pool.AddExecutionContext(ec, 0)
	ec.Wake()

	waitForCondition(t, time.Second, func() bool { return runs.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "callback must not run again once it returns false")
}

func TestExecutionContextKeepsRunningUntilItAsksToStop(t *testing.T) {
	pool, err := NewPool(ExecutionConfig{ProcessorCount: 1})
	require.NoError(t, err)
	defer pool.Delete()

	var runs atomic.Int32
	var ec *ExecutionContext
	ec = NewExecutionContext(func(state *ExecutionState) bool {
		n := runs.Add(1)
		if n >= 3 {
			return false
		}
		ec.Wake()
		return true
	})
	pool.AddExecutionContext(ec, 0)
	ec.Wake()

	waitForCondition(t, time.Second, func() bool { return runs.Load() == 3 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), runs.Load())
}

func TestAddExecutionContextCoalescesUpdatePollEnqueue(t *testing.T) {
	w := newWorker(0, 0, false, nil)
	// Do not start the worker goroutine: observe pendingECs/queueing directly.

	var ecs []*ExecutionContext
	for i := 0; i < 5; i++ {
		ecs = append(ecs, NewExecutionContext(func(state *ExecutionState) bool { return true }))
	}

	for _, ec := range ecs {
		w.addExecutionContext(ec)
	}
	queuedCount := len(w.events)

	assert.Equal(t, 1, queuedCount, "only the first registration into an empty pending list should enqueue update_poll")
	assert.Len(t, w.events, 1)
	assert.Len(t, w.pendingECs, 5)
}

func TestWakeCoalescesOnFalseToTrueTransition(t *testing.T) {
	w := newWorker(0, 0, false, nil)

	w.running.Store(false)
	w.wake()
	assert.Len(t, w.events, 1, "first wake on a non-running worker enqueues one wake event")

	<-w.events // drain, simulating the worker's own dequeue
	w.running.Store(true)
	w.wake()
	assert.Len(t, w.events, 0, "waking an already-running worker enqueues nothing")
}

func TestDynamicPoolPruningRunsAtLeastOncePerSecond(t *testing.T) {
	clock := &fakeClock{}
	pool, err := NewPool(ExecutionConfig{ProcessorCount: 1, Clock: clock})
	require.NoError(t, err)
	defer pool.Delete()

	var pruneCalls atomic.Int32
	p := prunerFunc(func() bool {
		pruneCalls.Add(1)
		return false
	})
	pool.AddDynamicPool(p, 0)

	// Keep a context perpetually ready so the worker loop spins instead of
	// blocking indefinitely on the event queue, and advance the fake clock
	// past the 1-second pool-processing period.
	var ec *ExecutionContext
	ec = NewExecutionContext(func(state *ExecutionState) bool {
		clock.Advance(200_000)
		ec.Wake()
		return true
	})
	pool.AddExecutionContext(ec, 0)
	ec.Wake()

	waitForCondition(t, 2*time.Second, func() bool { return pruneCalls.Load() >= 1 })
}

type prunerFunc func() bool

func (f prunerFunc) Prune() bool { return f() }
