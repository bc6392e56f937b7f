//go:build linux

package worker

import "golang.org/x/sys/unix"

// setAffinity pins the calling OS thread to processor, best-effort. Errors
// are intentionally swallowed: affinity is an optimization hint, not a
// correctness requirement, and the caller already accepted best-effort
// semantics by setting ExecutionConfig.Affinitize.
func setAffinity(processor uint16) {
	var set unix.CPUSet
	set.Zero()
	set.Set(int(processor))
	_ = unix.SchedSetaffinity(0, &set)
}
