package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenakit/arenakit/mem"
)

func newTestBuddy(t testing.TB, capacity, minBlock int64) *Buddy {
	t.Helper()
	b, err := NewBuddy(newTestStore(t, capacity), &BuddyConfig{MinBlockSize: minBlock})
	require.NoError(t, err)
	return b
}

func TestBuddy_Construction(t *testing.T) {
	_, err := NewBuddy(newTestStore(t, 1000), nil)
	require.ErrorIs(t, err, ErrBadConfig, "non-power-of-two capacity should be rejected")

	_, err = NewBuddy(newTestStore(t, 1024), &BuddyConfig{MinBlockSize: 48})
	require.ErrorIs(t, err, ErrBadConfig, "non-power-of-two min block should be rejected")

	_, err = NewBuddy(newTestStore(t, 64), &BuddyConfig{MinBlockSize: 128})
	require.ErrorIs(t, err, ErrBadConfig, "min block larger than capacity should be rejected")

	b, err := NewBuddy(newTestStore(t, 1024), nil)
	require.NoError(t, err)
	assert.True(t, b.FreeBlockAt(0, 1024), "fresh buddy should hold one all-capacity free block")
}

// TestBuddy_SplitAndMergeScenario walks the documented scenario: capacity
// 1024, min block 64. Allocating 100 bytes rounds to 128, splits the 1024
// block down to a 128-byte block at offset 0 leaving free blocks 128@128,
// 256@256, 512@512; freeing it merges everything back to 1024@0.
func TestBuddy_SplitAndMergeScenario(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	h, err := b.Allocate(100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), h.Off, "first allocation should keep the lower half")
	assert.Equal(t, int64(128), h.Len, "100 bytes should round to 128")

	assert.True(t, b.FreeBlockAt(128, 128), "expected free block 128@128")
	assert.True(t, b.FreeBlockAt(256, 256), "expected free block 256@256")
	assert.True(t, b.FreeBlockAt(512, 512), "expected free block 512@512")
	requireBuddyConservation(t, b)

	require.NoError(t, b.Free(h))
	assert.True(t, b.FreeBlockAt(0, 1024), "free should merge all the way back up")
	requireBuddyConservation(t, b)
}

func TestBuddy_MinBlockRounding(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	h, err := b.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, int64(64), h.Len, "tiny requests should round up to the min block")
}

func TestBuddy_Oversized(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	_, err := b.Allocate(1025)
	assert.ErrorIs(t, err, ErrOversized)

	// Exactly capacity is fine.
	h, err := b.Allocate(1024)
	require.NoError(t, err)
	assert.Equal(t, int64(0), h.Off)
	assert.Equal(t, int64(1024), h.Len)
}

func TestBuddy_OutOfMemory(t *testing.T) {
	b := newTestBuddy(t, 512, 64)

	var handles []mem.Handle
	for n := 0; n < 8; n++ {
		h, err := b.Allocate(64)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	requireDisjoint(t, handles)

	_, err := b.Allocate(64)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	// Freeing one block makes room again.
	require.NoError(t, b.Free(handles[3]))
	_, err = b.Allocate(64)
	require.NoError(t, err)
}

func TestBuddy_MergeStopsAtAllocatedBuddy(t *testing.T) {
	b := newTestBuddy(t, 256, 64)

	h0, err := b.Allocate(64) // 64@0
	require.NoError(t, err)
	h1, err := b.Allocate(64) // 64@64
	require.NoError(t, err)

	require.NoError(t, b.Free(h0))
	assert.True(t, b.FreeBlockAt(0, 64), "64@0 cannot merge while its buddy is live")

	require.NoError(t, b.Free(h1))
	assert.False(t, b.FreeBlockAt(0, 64), "both buddies free should have merged")
	assert.True(t, b.FreeBlockAt(0, 256), "merge should cascade to the top")
	requireBuddyConservation(t, b)
}

func TestBuddy_DoubleFree(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	h, err := b.Allocate(128)
	require.NoError(t, err)
	require.NoError(t, b.Free(h))

	assert.ErrorIs(t, b.Free(h), ErrBadHandle, "double free must be rejected, not merged")
	requireBuddyConservation(t, b)
}

func TestBuddy_ForgedHandle(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	h, err := b.Allocate(128)
	require.NoError(t, err)

	forged := h
	forged.Len = 256
	assert.ErrorIs(t, b.Free(forged), ErrBadHandle, "size-mismatched handle must be rejected")

	forged = h
	forged.Off += 64
	assert.ErrorIs(t, b.Free(forged), ErrBadHandle, "offset-mismatched handle must be rejected")

	require.NoError(t, b.Free(h), "the genuine handle should still free cleanly")
}

func TestBuddy_RoundTripRestoresFreeBytes(t *testing.T) {
	b := newTestBuddy(t, 4096, 64)

	before := b.Stats()
	h, err := b.Allocate(300) // rounds to 512
	require.NoError(t, err)
	require.Equal(t, int64(512), h.Len)

	require.NoError(t, b.Free(h))
	after := b.Stats()
	assert.Equal(t, before.FreeBytes, after.FreeBytes,
		"allocate+free should restore the free byte count")
}

func TestBuddy_ResetInvalidatesHandles(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	h, err := b.Allocate(128)
	require.NoError(t, err)

	b.Reset()
	assert.ErrorIs(t, b.Free(h), ErrBadHandle)
	assert.True(t, b.FreeBlockAt(0, 1024), "reset should restore the single free block")
}

func TestBuddy_StatsFragmentation(t *testing.T) {
	b := newTestBuddy(t, 1024, 64)

	st := b.Stats()
	assert.Equal(t, int64(0), st.AllocatedBytes)
	assert.Equal(t, int64(1024), st.FreeBytes)
	assert.InDelta(t, 100.0, st.FragmentationPct, 0.01)

	_, err := b.Allocate(512)
	require.NoError(t, err)

	st = b.Stats()
	assert.Equal(t, int64(512), st.AllocatedBytes)
	assert.Equal(t, int64(512), st.FreeBytes)
	assert.InDelta(t, 50.0, st.FragmentationPct, 0.01)
}
