// Package mem provides the backing store and handle types shared by every
// allocation strategy in arenakit.
//
// # Overview
//
// A Store is a fixed-capacity, contiguous byte region. It performs no
// bookkeeping of its own: allocators carve disjoint regions out of it and
// are responsible for every invariant over those regions. The Store only
// answers "give me bytes at this offset" and panics when asked for bytes
// outside its range, because an out-of-range access is a programmer error
// in the owning allocator, never a recoverable condition.
//
// # Handles
//
// A Handle is the unit of ownership handed to callers: an (arena, offset,
// length) view into one Store plus the issuing allocator's epoch at
// allocation time. Allocators bump their epoch when they reset or collect,
// so a stale handle fails a cheap validity check instead of silently
// aliasing live data.
//
// # Offset arithmetic
//
// All offsets are zero-based within a single Store. The buddy strategy
// computes buddy addresses with offset XOR size, which is only sound over
// a zero-based region whose capacity is a power of two; Store exposes
// IsPowerOfTwo so owners can validate that constraint at construction.
//
// # Thread Safety
//
// Store is not goroutine-safe. Callers must synchronize access externally;
// the allocation strategies in mem/alloc assume exclusive ownership of
// their Store.
package mem
