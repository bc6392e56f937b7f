package mempool

import (
	"fmt"
)

// A pool of fixed-size chunks, shared by any number of concurrent callers.
// Chunks obtained from the pool must be returned with PutChunk once no
// longer needed, or they are left for the garbage collector.
type BufferPool interface {
	// GetChunk obtains a single fixed-size chunk from the pool. Returns nil
	// if the pool is empty.
	GetChunk() []byte

	// PutChunk returns a chunk obtained from GetChunk back to the pool.
	// chunk must have the pool's chunk size; chunks of any other size are
	// dropped rather than pooled.
	PutChunk(chunk []byte)
}

// Creates a new buffer pool. Up to maxPoolSize_bytes of buffer chunks will be
// pooled. Each buffer chunk will have size chunkSize_bytes.
func MakeBufferPool(maxPoolSize_bytes int64, chunkSize_bytes int64) (BufferPool, error) {
	if chunkSize_bytes < 1 {
		return nil, fmt.Errorf("invalid chunkSize_bytes %d", chunkSize_bytes)
	}
	if maxPoolSize_bytes < chunkSize_bytes {
		return nil, fmt.Errorf("invalid maxPoolSize_bytes %d", maxPoolSize_bytes)
	}

	numChunks := maxPoolSize_bytes / chunkSize_bytes
	chunks := make(chan []byte, numChunks)
	for count := 0; count < int(numChunks); count++ {
		chunks <- make([]byte, chunkSize_bytes)
	}

	return bufferPool{
		chunks:          chunks,
		chunkSize_bytes: int(chunkSize_bytes),
	}, nil
}

type bufferPool struct {
	// Stores all available chunks.
	chunks chan []byte

	// The size of each chunk, in bytes.
	chunkSize_bytes int
}

var _ BufferPool = (*bufferPool)(nil)

func (pool bufferPool) GetChunk() []byte {
	return pool.getChunk()
}

func (pool bufferPool) PutChunk(chunk []byte) {
	if len(chunk) != pool.chunkSize_bytes {
		return
	}
	pool.release([][]byte{chunk})
}

// Obtains a chunk from the pool. Returns nil if the pool is empty.
func (pool bufferPool) getChunk() []byte {
	select {
	case result := <-pool.chunks:
		for i := range result {
			result[i] = 0
		}
		return result
	default:
		return nil
	}
}

// Releases the given chunks back to the pool.
func (pool bufferPool) release(chunks [][]byte) {
	// Avoid blocking, in case we somehow end up releasing more chunks than were
	// initially allocated for the pool.
	for _, chunk := range chunks {
		select {
		case pool.chunks <- chunk:
			continue
		default:
			return
		}
	}
}
