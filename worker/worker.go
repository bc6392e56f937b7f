// Package worker implements a per-processor cooperative execution pool: one
// goroutine per configured processor runs a small set of registered
// execution contexts to completion in a tight loop, driven by an event
// queue that also carries wake and registration notifications.
//
// Execution contexts must never block; the only suspension point is the
// worker's own event-queue wait between scheduling passes.
package worker

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	idleWorkThreshold         = 10
	dynamicPoolProcessingUs   = uint64(time.Second / time.Microsecond)
	dynamicPoolPruneCount     = 8
	eventQueueDepth           = 8
	noWaitTime                = time.Duration(-1)

	// maxWaitTime is the clamp applied to the computed dequeue wait, mirroring
	// the original's conversion of a microsecond deadline into a millisecond
	// wait value bounded by the platform's maximum wait sentinel.
	maxWaitTime = time.Duration(math.MaxInt32) * time.Millisecond
)

type sqeKind int

const (
	sqeWake sqeKind = iota
	sqeUpdatePoll
	sqeShutdown
)

// Worker drives a set of ExecutionContexts from a single goroutine. The
// zero value is not usable; obtain one from a Pool.
type Worker struct {
	index          int
	idealProcessor uint16
	affinitize     bool
	clock          Clock

	events chan sqeKind
	done   chan struct{}

	ecLock       sync.Mutex
	pendingECs   []*ExecutionContext
	dynamicPools []DynamicPool

	executionContexts []*ExecutionContext

	running  atomic.Bool
	stopping atomic.Bool
}

func newWorker(index int, idealProcessor uint16, affinitize bool, clock Clock) *Worker {
	if clock == nil {
		clock = realClock{}
	}
	return &Worker{
		index:          index,
		idealProcessor: idealProcessor,
		affinitize:     affinitize,
		clock:          clock,
		events:         make(chan sqeKind, eventQueueDepth),
		done:           make(chan struct{}),
	}
}

// Index returns the worker's position within its Pool, matching the index
// used to register execution contexts and dynamic pools against it.
func (w *Worker) Index() int { return w.index }

// IdealProcessor returns the processor this worker prefers to run on.
func (w *Worker) IdealProcessor() uint16 { return w.idealProcessor }

func (w *Worker) start() {
	go w.run()
}

func (w *Worker) enqueue(kind sqeKind) {
	w.events <- kind
}

func (w *Worker) addExecutionContext(ec *ExecutionContext) {
	ec.owner = w
	w.ecLock.Lock()
	queueEvent := len(w.pendingECs) == 0
	w.pendingECs = append(w.pendingECs, ec)
	w.ecLock.Unlock()

	if queueEvent {
		w.enqueue(sqeUpdatePoll)
	}
}

// wake marks the worker as running and, if it was idle, enqueues exactly
// one wake event. Coalescing happens on the false->true transition of
// running: concurrent callers racing here enqueue at most one wake.
func (w *Worker) wake() {
	if !w.running.Swap(true) {
		w.enqueue(sqeWake)
	}
}

func (w *Worker) addDynamicPool(p DynamicPool) {
	w.ecLock.Lock()
	w.dynamicPools = append(w.dynamicPools, p)
	w.ecLock.Unlock()
}

func (w *Worker) removeDynamicPool(p DynamicPool) {
	w.ecLock.Lock()
	for i, dp := range w.dynamicPools {
		if dp == p {
			w.dynamicPools = append(w.dynamicPools[:i], w.dynamicPools[i+1:]...)
			break
		}
	}
	w.ecLock.Unlock()
}

// updateExecutionContexts merges the pending-registration list into the
// worker-owned list. Only ever called from the worker's own goroutine, so
// executionContexts needs no lock.
func (w *Worker) updateExecutionContexts() {
	w.ecLock.Lock()
	pending := w.pendingECs
	w.pendingECs = nil
	w.ecLock.Unlock()

	if len(pending) == 0 {
		return
	}
	w.executionContexts = append(pending, w.executionContexts...)
}

// runExecutionContexts runs one scheduling pass over every registered
// context that is ready or past its requested wake time, removing any
// context whose callback returns false, and computes how long the worker
// may safely block before the next pass is needed.
func (w *Worker) runExecutionContexts(state *ExecutionState) {
	if len(w.executionContexts) == 0 {
		state.WaitTime = noWaitTime
		return
	}

	const maxUint64 = ^uint64(0)
	nextTime := maxUint64

	kept := w.executionContexts[:0]
	for _, ec := range w.executionContexts {
		if ec.ready.Swap(false) || (ec.NextTimeUs != 0 && ec.NextTimeUs <= state.TimeNowUs) {
			if !ec.Callback(state) {
				continue
			}
			if ec.ready.Load() {
				nextTime = 0
			}
		}
		if ec.NextTimeUs != 0 && ec.NextTimeUs < nextTime {
			nextTime = ec.NextTimeUs
		}
		kept = append(kept, ec)
	}
	w.executionContexts = kept

	switch {
	case nextTime == 0:
		state.WaitTime = 0
	case nextTime == maxUint64:
		state.WaitTime = noWaitTime
	default:
		diffUs := nextTime - state.TimeNowUs
		diffMs := diffUs / 1000
		switch {
		case diffMs == 0:
			state.WaitTime = time.Millisecond
		case diffMs > uint64(math.MaxInt32):
			state.WaitTime = maxWaitTime
		default:
			state.WaitTime = time.Duration(diffMs) * time.Millisecond
		}
	}
}

func (w *Worker) processDynamicPoolAllocators() {
	w.ecLock.Lock()
	pools := append([]DynamicPool(nil), w.dynamicPools...)
	w.ecLock.Unlock()

	pruned := 0
	for _, p := range pools {
		for i := 0; i < dynamicPoolPruneCount; i++ {
			if !p.Prune() {
				break
			}
			pruned++
		}
	}

	if pruned != 0 {
		fmt.Printf("worker %d: pruned %d dynamic pool allocations\n", w.index, pruned)
	}
}

func (w *Worker) handleSQE(kind sqeKind) {
	switch kind {
	case sqeWake:
		// No-op: the wake event's only purpose was unblocking the dequeue.
	case sqeUpdatePoll:
		w.updateExecutionContexts()
	case sqeShutdown:
		w.stopping.Store(true)
	}
}

// processEvents blocks for at most state.WaitTime for the first queued
// event, handles it, then drains any further already-queued events without
// blocking, coalescing registration/wake bursts into one scheduling pass.
func (w *Worker) processEvents(state *ExecutionState) {
	if state.WaitTime < 0 {
		kind := <-w.events
		state.NoWorkCount = 0
		w.handleSQE(kind)
	} else {
		timer := time.NewTimer(state.WaitTime)
		select {
		case kind := <-w.events:
			timer.Stop()
			state.NoWorkCount = 0
			w.handleSQE(kind)
		case <-timer.C:
		}
	}
	w.running.Store(true)

drainLoop:
	for {
		select {
		case kind := <-w.events:
			state.NoWorkCount = 0
			w.handleSQE(kind)
		default:
			break drainLoop
		}
	}
}

func (w *Worker) run() {
	if w.affinitize {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		setAffinity(w.idealProcessor)
	}

	state := &ExecutionState{WaitTime: noWaitTime}
	w.running.Store(true)

	for !w.stopping.Load() {
		state.NoWorkCount++
		state.TimeNowUs = w.clock.NowUs()

		w.runExecutionContexts(state)
		if state.WaitTime != 0 && w.running.Swap(false) {
			state.TimeNowUs = w.clock.NowUs()
			w.runExecutionContexts(state) // handle the race of a wake just missed
		}

		w.processEvents(state)

		if state.NoWorkCount == 0 {
			state.LastWorkTimeUs = state.TimeNowUs
		} else if state.NoWorkCount > idleWorkThreshold {
			runtime.Gosched()
			state.NoWorkCount = 0
		}

		if state.TimeNowUs-state.LastPoolProcessTimeUs > dynamicPoolProcessingUs {
			w.processDynamicPoolAllocators()
			state.LastPoolProcessTimeUs = state.TimeNowUs
		}
	}

	w.running.Store(false)
	close(w.done)
}

func (w *Worker) shutdown() {
	w.enqueue(sqeShutdown)
	<-w.done
}
