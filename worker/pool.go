package worker

import (
	"sync"

	"github.com/mel2oo/quicbuf/optionals"
	"github.com/pkg/errors"
)

// ExecutionConfig configures a Pool. ProcessorCount must be positive.
// ProcessorList, if present, supplies the ideal processor for each worker
// index; workers beyond the list's length (or when it is None) default to
// their own index as ideal processor.
type ExecutionConfig struct {
	ProcessorCount int
	ProcessorList  optionals.Optional[[]uint16]

	// NoIdealProcessor makes NewPool ignore ProcessorList: every worker's
	// ideal processor is its own index, and Affinitize, if set, pins to
	// that index.
	NoIdealProcessor bool

	// Affinitize requests best-effort OS-thread affinity to each worker's
	// ideal processor. Honored on Linux via sched_setaffinity; a no-op
	// elsewhere, since pinning goroutines to a processor is inherently
	// advisory in a preemptible, migratable runtime.
	Affinitize bool

	// Clock overrides the time source used by every worker; nil means the
	// real wall clock. Intended for tests.
	Clock Clock
}

// rundown implements acquire/release-and-wait reference counting: once
// ReleaseAndWait has been called, further AddRef calls fail, and
// ReleaseAndWait itself blocks until every outstanding reference has been
// released.
type rundown struct {
	mu        sync.Mutex
	count     int
	stopping  bool
	zero      chan struct{}
	closeOnce sync.Once
}

func newRundown() *rundown {
	return &rundown{zero: make(chan struct{})}
}

func (r *rundown) AddRef() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping {
		return false
	}
	r.count++
	return true
}

func (r *rundown) Release() {
	r.mu.Lock()
	r.count--
	done := r.stopping && r.count == 0
	r.mu.Unlock()
	if done {
		r.closeOnce.Do(func() { close(r.zero) })
	}
}

func (r *rundown) ReleaseAndWait() {
	r.mu.Lock()
	r.stopping = true
	done := r.count == 0
	r.mu.Unlock()
	if done {
		r.closeOnce.Do(func() { close(r.zero) })
	}
	<-r.zero
}

// Pool is a fixed-size set of per-processor Workers, plus rundown
// reference counting so callers can safely tear it down only once every
// external holder has released its reference.
type Pool struct {
	workers []*Worker
	rundown *rundown
}

// NewPool starts cfg.ProcessorCount workers and returns the pool managing
// them. Each worker begins its scheduling loop immediately.
func NewPool(cfg ExecutionConfig) (*Pool, error) {
	if cfg.ProcessorCount <= 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "processor_count must be positive")
	}

	processorList, _ := cfg.ProcessorList.Get()

	p := &Pool{rundown: newRundown()}
	for i := 0; i < cfg.ProcessorCount; i++ {
		ideal := uint16(i)
		if !cfg.NoIdealProcessor && i < len(processorList) {
			ideal = processorList[i]
		}
		w := newWorker(i, ideal, cfg.Affinitize, cfg.Clock)
		p.workers = append(p.workers, w)
		w.start()
	}
	return p, nil
}

// Count returns the number of workers in the pool.
func (p *Pool) Count() int { return len(p.workers) }

// AddRef acquires a reference to the pool, failing if Delete has already
// begun tearing it down.
func (p *Pool) AddRef() bool { return p.rundown.AddRef() }

// Release drops a reference acquired with AddRef.
func (p *Pool) Release() { p.rundown.Release() }

// Worker returns the worker at index, which must be in [0, Count()).
func (p *Pool) Worker(index int) *Worker { return p.workers[index] }

// AddExecutionContext registers ec with the worker at index. Safe to call
// from any goroutine.
func (p *Pool) AddExecutionContext(ec *ExecutionContext, index int) {
	p.workers[index].addExecutionContext(ec)
}

// AddDynamicPool registers p for periodic pruning by the worker at index.
func (pool *Pool) AddDynamicPool(p DynamicPool, index int) {
	pool.workers[index].addDynamicPool(p)
}

// RemoveDynamicPool unregisters a pool previously added with AddDynamicPool
// from the given worker.
func (pool *Pool) RemoveDynamicPool(p DynamicPool, index int) {
	pool.workers[index].removeDynamicPool(p)
}

// Delete waits for every outstanding Pool reference to release, then shuts
// down and joins every worker goroutine in turn. Delete must be called at
// most once.
func (p *Pool) Delete() {
	p.rundown.ReleaseAndWait()
	for _, w := range p.workers {
		w.shutdown()
	}
}
