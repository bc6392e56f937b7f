package worker

import (
	"sync/atomic"
	"time"
)

// ExecutionState is passed to every ExecutionCallback invocation during a
// single scheduling pass of the owning Worker.
type ExecutionState struct {
	// TimeNowUs is the worker's current time, in microseconds, as of the
	// start of this scheduling pass.
	TimeNowUs uint64

	// LastWorkTimeUs is the TimeNowUs of the last pass that did any work.
	LastWorkTimeUs uint64

	// NoWorkCount counts consecutive passes with no event-queue activity.
	NoWorkCount uint32

	// LastPoolProcessTimeUs is the TimeNowUs as of the last dynamic-pool
	// pruning pass.
	LastPoolProcessTimeUs uint64

	// WaitTime is set by the scheduler after each pass: how long the worker
	// may safely block before the next context needs servicing. Negative
	// means block indefinitely (no context has a pending timeout).
	WaitTime time.Duration
}

// ExecutionCallback runs one unit of cooperative work. It must not block.
// Returning false permanently removes the context from its worker.
type ExecutionCallback func(state *ExecutionState) bool

// ExecutionContext is a unit of cooperative work registered with a Worker
// via Pool.AddExecutionContext. A context must be registered with at most
// one pool at a time.
type ExecutionContext struct {
	// Callback is invoked once per scheduling pass while the context is
	// ready or past NextTimeUs.
	Callback ExecutionCallback

	// NextTimeUs requests a wake-up no later than this absolute time, in
	// microseconds, even if Wake is never called. Zero means "no timeout
	// preference"; the context only runs when woken.
	NextTimeUs uint64

	ready atomic.Bool
	owner *Worker
}

// NewExecutionContext creates a context, ready to run on its first
// scheduling pass once registered.
func NewExecutionContext(cb ExecutionCallback) *ExecutionContext {
	ec := &ExecutionContext{Callback: cb}
	ec.ready.Store(true)
	return ec
}

// Wake marks the context ready to run on the owning worker's next
// scheduling pass, coalescing with any other pending wake.
func (ec *ExecutionContext) Wake() {
	ec.ready.Store(true)
	if ec.owner != nil {
		ec.owner.wake()
	}
}

// DynamicPool is a memory pool whose backing allocations a Worker prunes
// periodically. Prune should release at most one idle allocation and
// report whether it did so; the worker calls it repeatedly, up to a fixed
// per-tick budget, stopping early once it returns false.
type DynamicPool interface {
	Prune() bool
}
