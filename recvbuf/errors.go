package recvbuf

import "github.com/pkg/errors"

// Sentinel errors corresponding to the error taxonomy: callers can compare
// against these with errors.Is. Invariant violations are never returned as
// errors; they panic through invariant() below.
var (
	// ErrInvalidParameter is returned when an argument violates a
	// precondition discoverable before any state change.
	ErrInvalidParameter = errors.New("recvbuf: invalid parameter")

	// ErrOutOfMemory is returned when an allocation fails. The buffer's
	// state is left unchanged when this is returned.
	ErrOutOfMemory = errors.New("recvbuf: out of memory")

	// ErrBufferTooSmall is returned when the peer exceeds either the
	// virtual flow-control window or the caller's per-call write limit.
	// Connection-fatal for the caller.
	ErrBufferTooSmall = errors.New("recvbuf: buffer too small")
)

// CheckInvariants gates the invariant-checking assertions scattered through
// this package, mirroring the toggle used throughout the host module's own
// buffer implementation. Tests that exercise invariant-sensitive mutation
// sequences should set this to true.
var CheckInvariants = false

// invariant panics if cond is false and CheckInvariants is enabled. It is
// never used to signal a condition a caller could reasonably recover from;
// those are reported as one of the sentinel errors above instead.
func invariant(cond bool, format string, args ...any) {
	if !CheckInvariants {
		return
	}
	if !cond {
		panic(errors.Errorf(format, args...))
	}
}
