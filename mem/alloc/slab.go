package alloc

import (
	"fmt"

	"github.com/arenakit/arenakit/mem"
)

// DefaultSlabUnit is the size-class granularity when SlabConfig.Unit is
// zero. Requests round up to the next multiple of the unit.
const DefaultSlabUnit = 64

// SlabConfig configures a Slab allocator.
type SlabConfig struct {
	// Unit is the size-class granularity in bytes. Every request rounds
	// up to the next multiple of Unit, which selects its class. Must be
	// positive; DefaultSlabUnit when zero.
	Unit int64
}

// Slab groups allocations into fixed-size classes, each with its own free
// list. External fragmentation is bounded to the padding wasted per object,
// at the cost of internal fragmentation from rounding. Fresh blocks are
// carved from the store with a bump pointer; freed blocks are zeroed and
// queued on their class for reuse.
type Slab struct {
	store *mem.Store
	unit  int64

	// classes is indexed by blockSize/unit - 1 and grows on demand.
	classes []slabClass

	// next is the carve pointer: the first store byte no class has
	// claimed yet.
	next int64

	epoch uint32

	allocatedBytes int64 // live bytes across all classes
	freeListBytes  int64 // free-listed bytes across all classes
}

// slabClass is one fixed-size pool: a queue of reusable blocks and the set
// of live offsets. free and live are always disjoint.
type slabClass struct {
	blockSize int64
	free      []int64
	live      map[int64]struct{}
}

// NewSlab creates a slab allocator over the given store. A nil cfg uses
// DefaultSlabUnit.
func NewSlab(store *mem.Store, cfg *SlabConfig) (*Slab, error) {
	unit := int64(DefaultSlabUnit)
	if cfg != nil && cfg.Unit != 0 {
		unit = cfg.Unit
	}
	if unit <= 0 {
		return nil, fmt.Errorf("%w: slab unit %d", ErrBadConfig, unit)
	}
	return &Slab{
		store: store,
		unit:  unit,
		epoch: 1,
	}, nil
}

// Allocate returns a handle of the request's class size (the request
// rounded up to a multiple of the slab unit). The block is zeroed: fresh
// carves come from the zeroed store, reused blocks were zeroed on free.
// Requests whose class could never fit the store return ErrOversized.
func (s *Slab) Allocate(size int64) (mem.Handle, error) {
	if size <= 0 {
		return mem.Handle{}, ErrBadSize
	}
	if size > s.store.Capacity() {
		return mem.Handle{}, ErrOversized
	}
	rounded := roundUp(size, s.unit)
	// Guard rounding overflow and classes the store cannot hold before the
	// class table grows an entry for them.
	if rounded <= 0 || rounded > s.store.Capacity() {
		return mem.Handle{}, ErrOversized
	}
	cls := s.class(rounded)

	if n := len(cls.free); n > 0 {
		off := cls.free[n-1]
		cls.free = cls.free[:n-1]
		cls.live[off] = struct{}{}
		s.freeListBytes -= rounded
		s.allocatedBytes += rounded
		return s.store.View(off, rounded, s.epoch), nil
	}

	// Carve a fresh block.
	if s.next+rounded > s.store.Capacity() {
		return mem.Handle{}, ErrOutOfMemory
	}
	off := s.next
	s.next += rounded
	cls.live[off] = struct{}{}
	s.allocatedBytes += rounded
	return s.store.View(off, rounded, s.epoch), nil
}

// Free returns a block to its class free list, zero-filled so the next
// caller sees clean memory.
func (s *Slab) Free(h mem.Handle) error {
	if !s.store.Owns(h) || h.Epoch != s.epoch {
		return ErrBadHandle
	}
	if h.Len <= 0 || h.Len%s.unit != 0 {
		return ErrBadHandle
	}
	idx := int(h.Len/s.unit) - 1
	if idx >= len(s.classes) {
		return ErrBadHandle
	}
	cls := &s.classes[idx]
	if _, ok := cls.live[h.Off]; !ok {
		return ErrBadHandle
	}
	delete(cls.live, h.Off)
	s.store.Zero(h.Off, h.Len)
	cls.free = append(cls.free, h.Off)
	s.allocatedBytes -= h.Len
	s.freeListBytes += h.Len
	return nil
}

// Reset drops every class and rewinds the carve pointer, invalidating all
// outstanding handles.
func (s *Slab) Reset() {
	s.classes = nil
	s.next = 0
	s.allocatedBytes = 0
	s.freeListBytes = 0
	s.epoch++
	s.store.Zero(0, s.store.Capacity())
}

// Stats aggregates byte accounting across all classes. FreeBytes includes
// the uncarved tail of the store, so an allocate immediately followed by a
// free restores the pre-allocation value.
func (s *Slab) Stats() Stats {
	free := s.freeListBytes + (s.store.Capacity() - s.next)
	return Stats{
		AllocatedBytes:   s.allocatedBytes,
		FreeBytes:        free,
		FragmentationPct: fragmentationPct(free, s.allocatedBytes),
	}
}

// class returns the class for the given rounded size, growing the class
// table if this is the first request of that size.
func (s *Slab) class(rounded int64) *slabClass {
	idx := int(rounded/s.unit) - 1
	for len(s.classes) <= idx {
		s.classes = append(s.classes, slabClass{
			blockSize: int64(len(s.classes)+1) * s.unit,
			live:      make(map[int64]struct{}),
		})
	}
	return &s.classes[idx]
}

// roundUp rounds v up to the next multiple of unit.
func roundUp(v, unit int64) int64 {
	return (v + unit - 1) / unit * unit
}

// Compile-time interface check
var _ Allocator = (*Slab)(nil)
