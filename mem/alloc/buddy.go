package alloc

import (
	"fmt"
	"math/bits"

	"github.com/arenakit/arenakit/mem"
)

// DefaultMinBlockSize is the smallest block the buddy allocator hands out
// when BuddyConfig.MinBlockSize is zero.
const DefaultMinBlockSize = 64

// BuddyConfig configures a Buddy allocator.
type BuddyConfig struct {
	// MinBlockSize is the smallest block ever split to. Must be a power
	// of two no larger than the store capacity; DefaultMinBlockSize when
	// zero.
	MinBlockSize int64
}

// Buddy manages the store as a binary hierarchy of power-of-two blocks.
// Allocation splits the smallest sufficient free block downward; free
// merges a block with its buddy (the equal-sized block at offset XOR size)
// as far upward as both halves are free.
//
// The free and allocated blocks always partition [0, capacity) exactly:
// no overlap, no gap. XOR buddy arithmetic requires the store capacity to
// be a power of two, which NewBuddy enforces.
type Buddy struct {
	store   *mem.Store
	minBits int // log2(minBlockSize)
	maxBits int // log2(capacity)

	// free holds free-block offsets per order, indexed by
	// log2(size) - minBits. Fixed length maxBits - minBits + 1.
	free []map[int64]struct{}

	// allocated maps live offsets to their block size, so double-frees
	// and forged handles are rejected instead of corrupting the tree.
	allocated map[int64]int64

	epoch          uint32
	allocatedBytes int64
}

// NewBuddy creates a buddy allocator over the given store. The store
// capacity and the minimum block size must both be powers of two.
func NewBuddy(store *mem.Store, cfg *BuddyConfig) (*Buddy, error) {
	minBlock := int64(DefaultMinBlockSize)
	if cfg != nil && cfg.MinBlockSize != 0 {
		minBlock = cfg.MinBlockSize
	}
	capacity := store.Capacity()
	if !mem.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w: buddy capacity %d is not a power of two", ErrBadConfig, capacity)
	}
	if !mem.IsPowerOfTwo(minBlock) {
		return nil, fmt.Errorf("%w: buddy min block size %d is not a power of two", ErrBadConfig, minBlock)
	}
	if minBlock > capacity {
		return nil, fmt.Errorf("%w: buddy min block size %d exceeds capacity %d", ErrBadConfig, minBlock, capacity)
	}

	b := &Buddy{
		store:     store,
		minBits:   log2(minBlock),
		maxBits:   log2(capacity),
		allocated: make(map[int64]int64),
		epoch:     1,
	}
	b.free = make([]map[int64]struct{}, b.maxBits-b.minBits+1)
	for i := range b.free {
		b.free[i] = make(map[int64]struct{})
	}
	// The whole region starts as one free block.
	b.free[len(b.free)-1][0] = struct{}{}
	return b, nil
}

// Allocate rounds the request up to a power of two (at least the minimum
// block size) and splits the smallest sufficient free block down to that
// size. Each split keeps the lower half and frees the upper buddy.
func (b *Buddy) Allocate(size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	want := nextPow2(max(size, int64(1)<<b.minBits))
	wantBits := log2(want)
	if wantBits > b.maxBits {
		return mem.Handle{}, ErrOversized
	}

	// Smallest order with a free block.
	haveBits := -1
	for o := wantBits; o <= b.maxBits; o++ {
		if len(b.free[o-b.minBits]) > 0 {
			haveBits = o
			break
		}
	}
	if haveBits < 0 {
		return mem.Handle{}, ErrOutOfMemory
	}

	off := b.takeLowest(haveBits)

	// Halve down to the target order, keeping the lower half and freeing
	// the upper buddy at each step.
	for o := haveBits; o > wantBits; o-- {
		half := int64(1) << (o - 1)
		b.free[o-1-b.minBits][off+half] = struct{}{}
	}

	b.allocated[off] = want
	b.allocatedBytes += want
	return b.store.View(off, want, b.epoch), nil
}

// Free returns a block and merges it with its buddy as far up as possible.
// Merging stops the first time a buddy is not free at the current size.
func (b *Buddy) Free(h mem.Handle) error {
	if !b.store.Owns(h) || h.Epoch != b.epoch {
		return ErrBadHandle
	}
	size, ok := b.allocated[h.Off]
	if !ok || size != h.Len {
		return ErrBadHandle
	}
	delete(b.allocated, h.Off)
	b.allocatedBytes -= size

	off := h.Off
	capacity := int64(1) << b.maxBits
	for size < capacity {
		buddy := off ^ size
		slot := b.free[log2(size)-b.minBits]
		if _, free := slot[buddy]; !free {
			break
		}
		delete(slot, buddy)
		off = min(off, buddy)
		size *= 2
	}
	b.free[log2(size)-b.minBits][off] = struct{}{}
	return nil
}

// Reset restores the single all-capacity free block and invalidates all
// outstanding handles.
func (b *Buddy) Reset() {
	for i := range b.free {
		b.free[i] = make(map[int64]struct{})
	}
	b.free[len(b.free)-1][0] = struct{}{}
	b.allocated = make(map[int64]int64)
	b.allocatedBytes = 0
	b.epoch++
}

// Stats reports buddy accounting. FragmentationPct here is total free
// bytes over capacity: how much of the region is free at all, regardless
// of how it is scattered across orders.
func (b *Buddy) Stats() Stats {
	free := b.FreeBytes()
	capacity := int64(1) << b.maxBits
	return Stats{
		AllocatedBytes:   b.allocatedBytes,
		FreeBytes:        free,
		FragmentationPct: 100 * float64(free) / float64(capacity),
	}
}

// FreeBytes sums free block bytes across all orders.
func (b *Buddy) FreeBytes() int64 {
	var total int64
	for i, slot := range b.free {
		total += int64(len(slot)) << (i + b.minBits)
	}
	return total
}

// FreeBlockAt reports whether a free block of the given size starts at off.
func (b *Buddy) FreeBlockAt(off, size int64) bool {
	if !mem.IsPowerOfTwo(size) {
		return false
	}
	o := log2(size)
	if o < b.minBits || o > b.maxBits {
		return false
	}
	_, ok := b.free[o-b.minBits][off]
	return ok
}

// takeLowest removes and returns the lowest free offset at the given
// order. Choosing the lowest address keeps allocations compact and makes
// placement deterministic.
func (b *Buddy) takeLowest(orderBits int) int64 {
	slot := b.free[orderBits-b.minBits]
	first := true
	var lowest int64
	for off := range slot {
		if first || off < lowest {
			lowest = off
			first = false
		}
	}
	delete(slot, lowest)
	return lowest
}

// log2 returns the exponent of a power of two.
func log2(v int64) int {
	return bits.Len64(uint64(v)) - 1
}

// nextPow2 rounds v up to the next power of two.
func nextPow2(v int64) int64 {
	if v <= 1 {
		return 1
	}
	return int64(1) << bits.Len64(uint64(v-1))
}

// Compile-time interface check
var _ Allocator = (*Buddy)(nil)
