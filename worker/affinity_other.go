//go:build !linux

package worker

// setAffinity is a no-op on platforms without a supported affinity syscall.
func setAffinity(processor uint16) {}
