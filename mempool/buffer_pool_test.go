package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeBufferPool(t *testing.T) {
	tests := []struct {
		name              string
		maxPoolSize_bytes int64
		chunkSize_bytes   int64
		expectError       bool
	}{
		{
			name:              "Negative chunk size",
			maxPoolSize_bytes: 1024,
			chunkSize_bytes:   -1,
			expectError:       true,
		},
		{
			name:              "Zero chunk size",
			maxPoolSize_bytes: 1024,
			chunkSize_bytes:   0,
			expectError:       true,
		},
		{
			name:              "Max pool size smaller than chunk size",
			maxPoolSize_bytes: 1024,
			chunkSize_bytes:   1025,
			expectError:       true,
		},
		{
			name:              "Max pool size equal to chunk size",
			maxPoolSize_bytes: 1024,
			chunkSize_bytes:   1024,
		},
		{
			name:              "Max pool size larger than chunk size",
			maxPoolSize_bytes: 1025,
			chunkSize_bytes:   1024,
		},
	}

	for _, testCase := range tests {
		_, err := MakeBufferPool(testCase.maxPoolSize_bytes, testCase.chunkSize_bytes)
		if testCase.expectError {
			assert.Error(t, err, testCase.name)
		} else {
			assert.NoError(t, err, testCase.name)
		}
	}
}

// Exercises GetChunk/PutChunk directly: the chunk-granting surface
// RecvChunkAllocator is built on.
func TestGetChunkPutChunk(t *testing.T) {
	pool, err := MakeBufferPool(2*8, 8)
	require.NoError(t, err)

	c1 := pool.GetChunk()
	require.Len(t, c1, 8)
	c2 := pool.GetChunk()
	require.Len(t, c2, 8)

	// Pool only held 2 chunks.
	assert.Nil(t, pool.GetChunk())

	c1[0] = 0xFF
	pool.PutChunk(c1)

	// Chunks come back zeroed.
	c3 := pool.GetChunk()
	require.Len(t, c3, 8)
	assert.Equal(t, byte(0), c3[0])

	// A chunk of the wrong size is dropped, not pooled.
	pool.PutChunk(make([]byte, 4))
	pool.PutChunk(c2)
	pool.PutChunk(c3)
	assert.NotNil(t, pool.GetChunk())
	assert.NotNil(t, pool.GetChunk())
	assert.Nil(t, pool.GetChunk())
}
