package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	assert.Equal(t, uint64(12), makeAlignUp(12, 3))
	assert.Equal(t, uint64(12), makeAlignUp(10, 3))
	assert.Equal(t, uint64(7), makeAlignUp(7, 0))
	assert.Equal(t, uint64(256), makeAlignUp(1, 256))
}

func TestAllocator(t *testing.T) {
	a := LinearAllocator{Size: 1024}

	assert.Nil(t, a.Allocate(2048, 1), "larger than the block")

	fa := a.Allocate(512, 1)
	require.NotNil(t, fa)

	assert.Nil(t, a.Allocate(768, 1))

	k := a.Allocate(500, 1)
	require.NotNil(t, k)

	assert.Nil(t, a.Allocate(50, 1))
	assert.NotNil(t, a.Allocate(5, 1))
	assert.Nil(t, a.Allocate(20, 1))

	a.Free(k)
	ra := a.Allocate(500, 1)
	require.NotNil(t, ra, "freed gap is reused")
	assert.Equal(t, uint64(512), ra.Offset)

	a.Free(fa)
	assert.NotNil(t, a.Allocate(20, 1))
	assert.NotNil(t, a.Allocate(40, 1))
	assert.NotNil(t, a.Allocate(12, 1))
	assert.Nil(t, a.Allocate(500, 1))
	assert.NotNil(t, a.Allocate(5, 1))
}

func TestAllocatorAlignment(t *testing.T) {
	a := LinearAllocator{Size: 64}

	first := a.Allocate(10, 1)
	require.NotNil(t, first)
	assert.Equal(t, uint64(0), first.Offset)

	second := a.Allocate(10, 16)
	require.NotNil(t, second)
	assert.Equal(t, uint64(16), second.Offset)

	// the 10..16 gap is too small once aligned
	third := a.Allocate(4, 16)
	require.NotNil(t, third)
	assert.Equal(t, uint64(32), third.Offset)

	assert.Nil(t, a.Allocate(32, 16))
	assert.Equal(t, "[[0 10] [16 10] [32 4]]", a.String())
}

func TestAllocatorFree(t *testing.T) {
	a := LinearAllocator{Size: 100}
	x := a.Allocate(60, 1)
	require.NotNil(t, x)
	assert.Equal(t, uint64(60), a.Used())

	a.Free(x)
	a.Free(x)
	assert.Equal(t, uint64(0), a.Used())

	assert.Nil(t, a.Allocate(0, 1))
	require.NotNil(t, a.Allocate(100, 1))
	a.Reset()
	assert.Equal(t, uint64(0), a.Used())
}
