package bitalloc_test

import (
	"testing"

	"github.com/rkade/newtfs/bitalloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_FirstFitLSBFirst(t *testing.T) {
	a := bitalloc.New(16)

	idx, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, a.IsSet(0))

	idx, err = a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestAllocate_ReusesFreedLowBit(t *testing.T) {
	a := bitalloc.New(8)
	_, _ = a.Allocate() // 0
	_, _ = a.Allocate() // 1
	require.NoError(t, a.Free(0))

	idx, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "first-fit should reuse the freed low bit before advancing")
}

func TestAllocate_ExhaustionReturnsErrNoSpace(t *testing.T) {
	a := bitalloc.New(4)
	for i := 0; i < 4; i++ {
		_, err := a.Allocate()
		require.NoError(t, err)
	}

	_, err := a.Allocate()
	assert.ErrorIs(t, err, bitalloc.ErrNoSpace)

	// Exhaustion must not have mutated existing state.
	for i := 0; i < 4; i++ {
		assert.True(t, a.IsSet(i))
	}
}

func TestFree_OutOfRangeErrors(t *testing.T) {
	a := bitalloc.New(4)
	assert.Error(t, a.Free(-1))
	assert.Error(t, a.Free(4))
}

func TestFromBytes_RoundTripsExistingImage(t *testing.T) {
	a := bitalloc.New(16)
	idx, err := a.Allocate()
	require.NoError(t, err)

	raw := a.Bytes()
	restored := bitalloc.FromBytes(raw, 16)
	assert.True(t, restored.IsSet(idx))
	assert.False(t, restored.IsSet(idx+1))
}
