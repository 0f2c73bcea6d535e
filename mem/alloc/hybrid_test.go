package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHybrid(t testing.TB, slabCap, buddyCap int64, cfg *HybridConfig) *Hybrid {
	t.Helper()
	hy, err := NewHybrid(newTestStore(t, slabCap), newTestStore(t, buddyCap), cfg)
	require.NoError(t, err)
	return hy
}

func TestHybrid_Construction(t *testing.T) {
	store := newTestStore(t, 4096)
	_, err := NewHybrid(store, store, nil)
	require.ErrorIs(t, err, ErrBadConfig, "both sides on one store must be rejected")

	_, err = NewHybrid(newTestStore(t, 4096), newTestStore(t, 4096), &HybridConfig{Cutoff: -1})
	require.ErrorIs(t, err, ErrBadConfig)

	// The buddy side inherits the buddy's power-of-two constraint.
	_, err = NewHybrid(newTestStore(t, 4096), newTestStore(t, 1000), nil)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestHybrid_SizeRouting(t *testing.T) {
	hy := newTestHybrid(t, 1<<16, 1<<16, &HybridConfig{Cutoff: 512})

	small, err := hy.Allocate(100)
	require.NoError(t, err)
	assert.Equal(t, hy.slab.store.ID(), small.Arena, "at or below cutoff goes to the slab")

	big, err := hy.Allocate(513)
	require.NoError(t, err)
	assert.Equal(t, hy.buddy.store.ID(), big.Arena, "above cutoff goes to the buddy")
	assert.Equal(t, int64(1024), big.Len, "buddy side rounds to a power of two")
}

func TestHybrid_FreeRoutesByArena(t *testing.T) {
	hy := newTestHybrid(t, 1<<16, 1<<16, &HybridConfig{Cutoff: 512})

	small, err := hy.Allocate(100)
	require.NoError(t, err)
	big, err := hy.Allocate(2048)
	require.NoError(t, err)

	// Both offsets start at 0 in their respective stores; only the arena
	// tag can tell them apart.
	require.Equal(t, small.Off, big.Off)

	require.NoError(t, hy.Free(big))
	assert.True(t, hy.buddy.FreeBlockAt(0, 1<<16), "buddy free should merge back to full capacity")

	require.NoError(t, hy.Free(small))
	st := hy.slab.Stats()
	assert.Zero(t, st.AllocatedBytes, "slab free should land on the slab side")
}

func TestHybrid_SlabExhaustedFallsThroughToBuddy(t *testing.T) {
	hy := newTestHybrid(t, 128, 1<<16, &HybridConfig{Cutoff: 512})

	// Drain the slab store.
	_, err := hy.Allocate(64)
	require.NoError(t, err)
	_, err = hy.Allocate(64)
	require.NoError(t, err)

	h, err := hy.Allocate(64)
	require.NoError(t, err, "a full slab side should not fail small requests")
	assert.Equal(t, hy.buddy.store.ID(), h.Arena, "overflow should land on the buddy")
}

func TestHybrid_MergedStats(t *testing.T) {
	hy := newTestHybrid(t, 1<<12, 1<<12, &HybridConfig{Cutoff: 256})

	_, err := hy.Allocate(64)
	require.NoError(t, err)
	_, err = hy.Allocate(1024)
	require.NoError(t, err)

	st := hy.Stats()
	assert.Equal(t, int64(64+1024), st.AllocatedBytes)
	assert.Equal(t, int64(2<<12)-64-1024, st.FreeBytes)
}

func TestHybrid_ResetInvalidatesBothSides(t *testing.T) {
	hy := newTestHybrid(t, 1<<12, 1<<12, &HybridConfig{Cutoff: 256})

	small, err := hy.Allocate(64)
	require.NoError(t, err)
	big, err := hy.Allocate(1024)
	require.NoError(t, err)

	hy.Reset()
	assert.ErrorIs(t, hy.Free(small), ErrBadHandle)
	assert.ErrorIs(t, hy.Free(big), ErrBadHandle)
}

func TestHybrid_ForeignHandle(t *testing.T) {
	hy := newTestHybrid(t, 1<<12, 1<<12, nil)

	other := NewStack(newTestStore(t, 1024))
	h, err := other.Allocate(64)
	require.NoError(t, err)

	assert.ErrorIs(t, hy.Free(h), ErrBadHandle,
		"a handle from an unrelated store routes to the buddy and is rejected there")
}
