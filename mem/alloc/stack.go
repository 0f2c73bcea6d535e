package alloc

import (
	"github.com/arenakit/arenakit/internal/buf"
	"github.com/arenakit/arenakit/mem"
)

// Stack is a bump-pointer allocator with checkpoint/restore reclamation.
// Allocate advances the top pointer; Push records it; Pop rewinds to the
// last recorded mark. There is no individual free, which eliminates all
// free-list bookkeeping at the cost of strictly nested lifetimes — ideal
// for scratch buffers whose lifetime matches one iteration of a loop.
//
// The top pointer only grows on Allocate and only shrinks to a previously
// pushed mark, never below zero or past capacity.
type Stack struct {
	store *mem.Store
	top   int64
	marks []int64
	epoch uint32
}

// NewStack creates a stack allocator over the given store.
func NewStack(store *mem.Store) *Stack {
	return &Stack{store: store, epoch: 1}
}

// Allocate returns the next size bytes at the top of the stack. Memory is
// not zeroed; a popped region keeps its old bytes until overwritten.
func (st *Stack) Allocate(size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	end, ok := buf.AddOverflowSafe(st.top, size)
	if !ok || end > st.store.Capacity() {
		return mem.Handle{}, ErrOutOfMemory
	}
	h := st.store.View(st.top, size, st.epoch)
	st.top += size
	return h, nil
}

// Free is a no-op for current-epoch handles: stack memory is reclaimed in
// LIFO batches via Pop and Reset, never individually. Handles from a
// previous epoch are rejected.
func (st *Stack) Free(h mem.Handle) error {
	if !st.store.Owns(h) || h.Epoch != st.epoch {
		return ErrBadHandle
	}
	return nil
}

// Push records the current top as a checkpoint.
func (st *Stack) Push() {
	st.marks = append(st.marks, st.top)
}

// Pop rewinds top to the most recent checkpoint, reclaiming everything
// allocated since the matching Push. Returns ErrStackOrder when no
// checkpoint is outstanding.
func (st *Stack) Pop() error {
	n := len(st.marks)
	if n == 0 {
		return ErrStackOrder
	}
	st.top = st.marks[n-1]
	st.marks = st.marks[:n-1]
	return nil
}

// Top returns the current bump offset.
func (st *Stack) Top() int64 {
	return st.top
}

// Marks returns the number of outstanding checkpoints.
func (st *Stack) Marks() int {
	return len(st.marks)
}

// Reset rewinds top to zero and drops all checkpoints, invalidating every
// outstanding handle. Used between unrelated batches of work.
func (st *Stack) Reset() {
	st.top = 0
	st.marks = st.marks[:0]
	st.epoch++
}

// Stats reports bump accounting. A stack has no free lists, so
// fragmentation follows directly from the shared formula.
func (st *Stack) Stats() Stats {
	free := st.store.Capacity() - st.top
	return Stats{
		AllocatedBytes:   st.top,
		FreeBytes:        free,
		FragmentationPct: fragmentationPct(free, st.top),
	}
}

// Compile-time interface check
var _ Allocator = (*Stack)(nil)
