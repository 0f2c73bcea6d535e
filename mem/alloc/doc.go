// Package alloc implements arenakit's allocation strategies over a raw
// backing store.
//
// # Overview
//
// Every strategy manages a finite, contiguous byte region (a mem.Store),
// hands out disjoint mem.Handle views of it, and reclaims them under
// strategy-specific rules. The strategies are independent of one another;
// each is a different answer to the same question, tuned for a different
// allocation pattern.
//
// # Strategies
//
// Slab: fixed size classes, one free list per class
//
//   - Requests round up to a multiple of the slab unit (default 64 bytes)
//   - O(1) allocation from the class free list, O(1) free
//   - Freed blocks are zeroed before reuse
//   - Best for many allocations of a few recurring sizes
//
// Buddy: binary hierarchy of power-of-two blocks
//
//   - Splits larger blocks downward on allocation, merges buddies on free
//   - Buddy address is offset XOR size; requires a power-of-two capacity
//   - Free and live blocks always partition the region exactly
//
// Stack: bump pointer with checkpoint/restore
//
//   - Push records the current top, Pop restores the last mark
//   - No individual free; reclamation is strictly LIFO
//   - Best for scratch memory scoped to one iteration of a loop
//
// LocalPool: per-owner cache of uniform blocks
//
//   - Each logical owner has its own bounded free queue
//   - A block freed by one owner is never handed to another
//   - Overflow blocks are dropped rather than shared
//
// GenPool: two-generation copying collector
//
//   - Young allocations age through minor collections
//   - Survivors reaching the promotion threshold copy into the old region
//   - Sub-threshold survivors compact to the front of a fresh young region
//
// # Usage Example
//
//	store, err := mem.NewStore(1 << 20)
//	if err != nil {
//	    return err
//	}
//	b, err := alloc.NewBuddy(store, nil)
//	if err != nil {
//	    return err
//	}
//
//	h, err := b.Allocate(100) // rounds to 128
//	if err != nil {
//	    return err
//	}
//
//	// Write through the store...
//	copy(store.Slice(h.Off, h.Len), payload)
//
//	// Later, return the block
//	err = b.Free(h)
//
// # Error Policy
//
// Errors are sentinel values returned synchronously to the caller. No
// strategy retries or swallows its own errors, with one exception: GenPool
// runs a single minor collection and retries once before surfacing
// ErrOutOfMemory.
//
// # Thread Safety
//
// Allocator instances are not goroutine-safe. Callers must synchronize
// access externally. The LocalPool models multiple logical owners, but
// each owner's pool is still single-caller at a time.
package alloc
