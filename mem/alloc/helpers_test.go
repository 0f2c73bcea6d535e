package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arenakit/arenakit/mem"
)

// newTestStore creates a heap-backed store or fails the test.
func newTestStore(t testing.TB, capacity int64) *mem.Store {
	t.Helper()
	s, err := mem.NewStore(capacity)
	require.NoError(t, err, "NewStore(%d)", capacity)
	return s
}

// requireDisjoint fails the test when any two handles overlap.
func requireDisjoint(t testing.TB, handles []mem.Handle) {
	t.Helper()
	for i := 0; i < len(handles); i++ {
		for j := i + 1; j < len(handles); j++ {
			require.False(t, handles[i].Overlaps(handles[j]),
				"live handles overlap: [%d,%d) and [%d,%d)",
				handles[i].Off, handles[i].End(), handles[j].Off, handles[j].End())
		}
	}
}

// requireBuddyConservation checks that free bytes plus live bytes equal
// the buddy's capacity exactly.
func requireBuddyConservation(t testing.TB, b *Buddy) {
	t.Helper()
	st := b.Stats()
	capacity := int64(1) << b.maxBits
	require.Equal(t, capacity, st.AllocatedBytes+st.FreeBytes,
		"free (%d) + live (%d) must partition capacity %d",
		st.FreeBytes, st.AllocatedBytes, capacity)
}
