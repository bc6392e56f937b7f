package mempool

// RecvChunkAllocator adapts a fixed-chunk-size BufferPool into the chunk
// allocator shape a recvbuf.Buffer expects (Allocate(uint32) []byte /
// Release([]byte)), so a stream receive buffer configured with a fixed,
// non-growing chunk size can draw its storage from a shared pool instead of
// allocating fresh memory per stream.
//
// Only requests matching chunkSize_bytes are served from the pool; any other
// size falls back to a fresh allocation, and is not returned to the pool on
// release. A buffer that resizes its chunks over its lifetime will therefore
// only benefit from pooling once it settles at chunkSize_bytes (typically
// because AllocLength == VirtualLength, so no resize ever happens).
type RecvChunkAllocator struct {
	pool      BufferPool
	chunkSize uint32
}

// NewRecvChunkAllocator wraps pool, serving only allocations of exactly
// chunkSize_bytes from it.
func NewRecvChunkAllocator(pool BufferPool, chunkSize_bytes uint32) *RecvChunkAllocator {
	return &RecvChunkAllocator{pool: pool, chunkSize: chunkSize_bytes}
}

// Allocate returns a chunk of allocLength bytes, drawn from the pool when
// allocLength matches the pool's chunk size and it has one on hand.
func (a *RecvChunkAllocator) Allocate(allocLength uint32) []byte {
	if allocLength != a.chunkSize {
		return make([]byte, allocLength)
	}
	if chunk := a.pool.GetChunk(); chunk != nil {
		return chunk
	}
	return make([]byte, allocLength)
}

// Release returns buf to the pool if it matches the pool's chunk size,
// otherwise it is left for the garbage collector.
func (a *RecvChunkAllocator) Release(buf []byte) {
	if uint32(len(buf)) != a.chunkSize {
		return
	}
	a.pool.PutChunk(buf)
}
