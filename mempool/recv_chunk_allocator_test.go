package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvChunkAllocatorDrawsFromPool(t *testing.T) {
	pool, err := MakeBufferPool(2*8, 8)
	require.NoError(t, err)

	a := NewRecvChunkAllocator(pool, 8)

	c1 := a.Allocate(8)
	require.Len(t, c1, 8)
	c2 := a.Allocate(8)
	require.Len(t, c2, 8)

	// Pool only held 2 chunks; a third request must fall back to a fresh
	// allocation rather than blocking or returning nil.
	c3 := a.Allocate(8)
	require.Len(t, c3, 8)

	a.Release(c1)
	c4 := a.Allocate(8)
	assert.Len(t, c4, 8)
}

func TestRecvChunkAllocatorIgnoresMismatchedSizes(t *testing.T) {
	pool, err := MakeBufferPool(16, 8)
	require.NoError(t, err)

	a := NewRecvChunkAllocator(pool, 8)

	// A request for a size other than the pool's chunk size always gets a
	// fresh allocation, never drawn from (or returned to) the pool.
	c := a.Allocate(16)
	require.Len(t, c, 16)
	a.Release(c) // must not panic or corrupt the pool
}
