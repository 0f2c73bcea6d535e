package alloc

import "github.com/arenakit/arenakit/mem"

// Allocator is the capability surface every strategy exposes.
//
// Implementations:
//   - Slab: segregated fixed-size classes with per-class free lists
//   - Buddy: power-of-two block splitting and merging
//   - Stack: bump pointer with LIFO checkpoint/restore
//   - OwnerPool: one owner's view of a LocalPool
//   - GenPool: generational copying collector
//   - Hybrid: slab for small requests, buddy for large ones
type Allocator interface {
	// Allocate returns a handle to size bytes, or an error when the
	// request cannot be served.
	Allocate(size int64) (mem.Handle, error)

	// Free returns a previously allocated handle to the strategy.
	// Freeing a handle that is not live returns ErrBadHandle.
	Free(h mem.Handle) error

	// Reset reclaims everything at once and invalidates all outstanding
	// handles. Always succeeds.
	Reset()

	// Stats reports the strategy's current byte accounting.
	Stats() Stats
}

// Stats is the byte accounting common to all strategies.
type Stats struct {
	// AllocatedBytes is the total size of live allocations, including
	// rounding applied by the strategy.
	AllocatedBytes int64

	// FreeBytes is the total reclaimable capacity: free-listed blocks
	// plus any uncarved remainder of the backing store.
	FreeBytes int64

	// FragmentationPct is the free share of accounted capacity,
	// 100 * free / (allocated + free). Zero when nothing is accounted.
	FragmentationPct float64
}

// fragmentationPct computes the shared stats formula, guarding the
// zero-capacity case.
func fragmentationPct(free, allocated int64) float64 {
	total := allocated + free
	if total == 0 {
		return 0
	}
	return 100 * float64(free) / float64(total)
}
