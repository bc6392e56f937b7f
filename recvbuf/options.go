package recvbuf

// Mode selects one of the four storage strategies a Buffer can use. Mode is
// immutable after construction.
type Mode int

const (
	// ModeSingle keeps exactly one chunk, never allows concurrent reads, and
	// reuses memory on drain via a memmove back to offset 0.
	ModeSingle Mode = iota

	// ModeCircular keeps exactly one chunk, never allows concurrent reads,
	// and reuses memory on drain circularly (no memmove).
	ModeCircular

	// ModeMultiple appends new chunks on growth instead of copying, allows
	// concurrent reads, and reuses the first chunk circularly while later
	// chunks are used linearly.
	ModeMultiple

	// ModeAppOwned never resizes internally; chunks arrive exclusively via
	// ProvideChunks, memory is never reused, and a drain instead shrinks the
	// virtual buffer length.
	ModeAppOwned
)

// DefaultMaxRangeEntries bounds the number of disjoint written-range
// entries a Buffer's written-range set will retain before Write starts
// failing with ErrOutOfMemory, matching the fixed allocator size the
// original implementation configures for QUIC_MAX_RANGE_ALLOC_SIZE.
const DefaultMaxRangeEntries = 32

// Options configures a new Buffer. Use NewOptions for sane defaults and the
// With* functions to adjust individual fields, mirroring the host module's
// functional-options convention.
type Options struct {
	// Mode selects the storage strategy. Required.
	Mode Mode

	// AllocLength is the initial physical chunk size, in bytes. Must be a
	// power of two. Ignored (must be 0) in ModeAppOwned.
	AllocLength uint32

	// VirtualLength is the initial flow-control window, in bytes. Must be a
	// power of two and >= AllocLength. Ignored (must be 0) in ModeAppOwned.
	VirtualLength uint32

	// PreallocatedChunk, if non-nil, is installed as the buffer's first
	// chunk instead of allocating a fresh one. Ignored in ModeAppOwned.
	PreallocatedChunk *Chunk

	// MaxRangeEntries bounds the written-range set's disjoint-range count.
	// 0 means DefaultMaxRangeEntries.
	MaxRangeEntries int

	// ChunkAllocator, if non-nil, supplies and reclaims the buffer's
	// internal chunk storage instead of the default make([]byte, n).
	ChunkAllocator ChunkAllocator
}

// NewOptions returns the default Options: ModeSingle, zero lengths (the
// caller must supply AllocLength/VirtualLength via With* or by setting the
// struct fields directly), and DefaultMaxRangeEntries.
func NewOptions() Options {
	return Options{
		Mode:            ModeSingle,
		MaxRangeEntries: DefaultMaxRangeEntries,
	}
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithMode sets the buffer's storage mode.
func WithMode(m Mode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// WithLengths sets the initial allocation and virtual buffer lengths.
func WithLengths(allocLength, virtualLength uint32) Option {
	return func(o *Options) {
		o.AllocLength = allocLength
		o.VirtualLength = virtualLength
	}
}

// WithPreallocatedChunk installs c as the buffer's first chunk instead of
// allocating a fresh one.
func WithPreallocatedChunk(c *Chunk) Option {
	return func(o *Options) {
		o.PreallocatedChunk = c
	}
}

// WithMaxRangeEntries overrides the written-range set's disjoint-range cap.
func WithMaxRangeEntries(n int) Option {
	return func(o *Options) {
		o.MaxRangeEntries = n
	}
}

// WithChunkAllocator installs an allocator that supplies and reclaims the
// buffer's internal chunk storage, instead of the default fresh allocation
// per chunk.
func WithChunkAllocator(a ChunkAllocator) Option {
	return func(o *Options) {
		o.ChunkAllocator = a
	}
}
